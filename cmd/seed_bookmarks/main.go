package main

import (
	"context"
	"dbconsole/internal/config"
	"dbconsole/internal/core"
	"dbconsole/internal/data"
	"dbconsole/internal/service"
	"flag"
	"fmt"
	"net/url"
	"os"
	"time"
)

// Lists the tables of the current database, or of the database passed as
// bookmark variable.
const sampleQuery = "SELECT TABLE_NAME, ENGINE, TABLE_ROWS FROM information_schema.TABLES " +
	"WHERE TABLE_SCHEMA = /*'[VARIABLE]'*/ DATABASE()"

// seed_bookmarks creates the bookmark table of a registered server and
// stores a shared sample bookmark for one database.
func main() {
	name := flag.String("server", "", "Registered server name")
	database := flag.String("db", "", "Database the sample bookmark belongs to")
	flag.Parse()
	if *name == "" || *database == "" {
		fmt.Println("Usage: seed_bookmarks -server <name> -db <database>")
		os.Exit(1)
	}

	cfg, err := config.Load(".env")
	if err != nil {
		fail("load config", err)
	}
	db, err := data.InitDB(cfg.DataPath)
	if err != nil {
		fail("open console store", err)
	}
	defer db.Close()

	cryptoSvc, err := service.NewEncryptionService(cfg.Key)
	if err != nil {
		fail("init crypto", err)
	}

	servers := data.NewServerRepo(db)
	all, err := servers.GetAll()
	if err != nil {
		fail("list servers", err)
	}
	var server *core.Server
	for i := range all {
		if all[i].Name == *name {
			server = &all[i]
		}
	}
	if server == nil {
		fail("find server", fmt.Errorf("%w: %s", core.ErrServerNotFound, *name))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sess, err := service.NewSessionOpener(servers, cryptoSvc, nil).Open(ctx, server.ID)
	if err != nil {
		fail("connect", err)
	}
	defer sess.Close()

	bookmarks := service.NewBookmarkService(servers, service.NewQueryExecutor(data.NewAuditRepo(db), cfg.QueryTimeout),
		func(q core.Querier) core.BookmarkRepository { return data.NewBookmarkRepo(q) })

	rc := core.RequestContext{ServerID: server.ID, User: "seed", Database: *database}
	scope, err := bookmarks.ResolveScope(rc)
	if err != nil {
		fail("resolve bookmark storage", err)
	}
	if err := data.NewBookmarkRepo(sess.Conn).EnsureTable(ctx, scope); err != nil {
		fail("create bookmark table", err)
	}

	b, err := bookmarks.Add(ctx, sess.Conn, rc, "Tables overview", url.QueryEscape(sampleQuery), true)
	if err != nil {
		fail("add sample bookmark", err)
	}
	fmt.Printf("Seeded shared bookmark %d in %s for database %s\n", b.ID, core.QualifiedName(scope.Database, scope.Table), *database)
}

func fail(step string, err error) {
	fmt.Printf("Failed to %s: %v\n", step, err)
	os.Exit(1)
}
