package shared

import (
	"errors"
	"testing"
)

func TestIsSQLiteConflictError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"busy", errors.New("stmt exec: SQLITE_BUSY (5)"), true},
		{"locked", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"constraint", errors.New("UNIQUE constraint failed: users.email"), false},
		{"other", errors.New("no such table: users"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSQLiteConflictError(tt.err); got != tt.want {
				t.Errorf("IsSQLiteConflictError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsSQLiteConstraintError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unique", errors.New("insert user: UNIQUE constraint failed: users.email"), true},
		{"code", errors.New("SQLITE_CONSTRAINT_UNIQUE (2067)"), true},
		{"busy", errors.New("SQLITE_BUSY"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSQLiteConstraintError(tt.err); got != tt.want {
				t.Errorf("IsSQLiteConstraintError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
