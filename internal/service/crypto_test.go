package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptionService_RoundTrip(t *testing.T) {
	svc, err := NewEncryptionService(testConsoleKey)
	require.NoError(t, err)

	dsn := "root:secret@tcp(db.internal:3306)/?charset=utf8mb4"
	first, err := svc.Encrypt(dsn)
	require.NoError(t, err)
	second, err := svc.Encrypt(dsn)
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "nonce must differ per call")

	plain, err := svc.Decrypt(first)
	require.NoError(t, err)
	assert.Equal(t, dsn, plain)
}

func TestEncryptionService_Errors(t *testing.T) {
	_, err := NewEncryptionService("short")
	assert.Error(t, err)

	svc, err := NewEncryptionService(testConsoleKey)
	require.NoError(t, err)
	other, err := NewEncryptionService(testConsoleKey + "-other")
	require.NoError(t, err)

	sealed, err := other.Encrypt("dsn")
	require.NoError(t, err)

	tests := []struct {
		name  string
		input string
	}{
		{name: "not base64", input: "%%%"},
		{name: "too short", input: "AAAA"},
		{name: "wrong key", input: sealed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Decrypt(tt.input)
			assert.Error(t, err)
		})
	}
}
