package main

import (
	"context"
	"dbconsole/internal/config"
	"dbconsole/internal/core"
	"dbconsole/internal/data"
	"dbconsole/internal/service"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"
)

// check_server connects to a registered server the way the console does
// and reports whether its bookmark storage is usable.
func main() {
	name := flag.String("server", "", "Registered server name")
	flag.Parse()
	if *name == "" {
		fmt.Println("Usage: check_server -server <name>")
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
	server, err := findServer(servers, *name)
	if err != nil {
		fail("find server", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sess, err := service.NewSessionOpener(servers, cryptoSvc, nil).Open(ctx, server.ID)
	if err != nil {
		fail("connect", err)
	}
	defer sess.Close()

	var version string
	if err := sess.Conn.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version); err != nil {
		fail("query version", err)
	}
	fmt.Printf("Server %q (id %d) is reachable, version %s\n", server.Name, server.ID, version)

	scope := &core.BookmarkScope{Database: server.BookmarkDB, Table: server.BookmarkTable}
	if !scope.Configured() {
		fmt.Println("Bookmarks: disabled (bookmark_db or bookmark_table not set)")
		return
	}

	if err := service.NewDatabaseGuard().Use(ctx, sess.Conn, scope.Database); err != nil {
		fail("select bookmark database", err)
	}
	status, err := service.NewTableInspector().Inspect(ctx, sess.Conn, scope.Table)
	if errors.Is(err, core.ErrTableNotFound) {
		fmt.Printf("Bookmarks: table %s is missing, run seed_bookmarks to create it\n", core.QualifiedName(scope.Database, scope.Table))
		os.Exit(2)
	}
	if err != nil {
		fail("inspect bookmark table", err)
	}
	fmt.Printf("Bookmarks: %s ok (%s, ~%d rows)\n", core.QualifiedName(scope.Database, scope.Table), status.Engine, status.Rows)
}

func findServer(repo core.ServerRepository, name string) (*core.Server, error) {
	all, err := repo.GetAll()
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Name == name {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", core.ErrServerNotFound, name)
}

func fail(step string, err error) {
	fmt.Printf("Failed to %s: %v\n", step, err)
	os.Exit(1)
}
