package mysql

import (
	"fmt"
	"strings"
	"testing"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/shrek82/godbc/core"
	"github.com/shrek82/godbc/driver"
)

func TestAcceptsURL(t *testing.T) {
	d := NewDriver()
	if !d.AcceptsURL("godbc:mysql://localhost:3306/app") {
		t.Error("Rejected a mysql URL")
	}
	if d.AcceptsURL("godbc:postgresql://localhost/app") {
		t.Error("Accepted a postgresql URL")
	}
	if d.AcceptsURL("mysql://localhost/app") {
		t.Error("Accepted a URL without the godbc prefix")
	}
}

func TestDSN(t *testing.T) {
	u, err := driver.ParseURL("godbc:mysql://db.example.com:3307/orders?charset=utf8mb4")
	if err != nil {
		t.Fatalf("ParseURL failed: %v", err)
	}
	dsn, err := dialect{}.DSN(u, "app", "secret")
	if err != nil {
		t.Fatalf("DSN failed: %v", err)
	}

	cfg, err := gomysql.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("Generated DSN does not parse back: %v (%q)", err, dsn)
	}
	if cfg.User != "app" || cfg.Passwd != "secret" {
		t.Errorf("Credentials = %q/%q", cfg.User, cfg.Passwd)
	}
	if cfg.Addr != "db.example.com:3307" || cfg.Net != "tcp" {
		t.Errorf("Addr = %q over %q", cfg.Addr, cfg.Net)
	}
	if cfg.DBName != "orders" {
		t.Errorf("DBName = %q", cfg.DBName)
	}
	if !cfg.ParseTime {
		t.Error("ParseTime should be on")
	}
	if cfg.Params["charset"] != "utf8mb4" {
		t.Errorf("charset param = %q", cfg.Params["charset"])
	}
}

func TestDSNDefaultPort(t *testing.T) {
	u, _ := driver.ParseURL("godbc:mysql://localhost/app")
	dsn, err := dialect{}.DSN(u, "", "")
	if err != nil {
		t.Fatalf("DSN failed: %v", err)
	}
	if !strings.Contains(dsn, "localhost:3306") {
		t.Errorf("Default port missing from %q", dsn)
	}
}

func TestNormalizeIsolation(t *testing.T) {
	d := dialect{}
	// All four SQL levels pass through unchanged.
	for _, level := range []core.IsolationLevel{
		core.IsolationReadUncommitted,
		core.IsolationReadCommitted,
		core.IsolationRepeatableRead,
		core.IsolationSerializable,
	} {
		got, err := d.NormalizeIsolation(level)
		if err != nil || got != level {
			t.Errorf("NormalizeIsolation(%v) = %v, %v", level, got, err)
		}
	}
	if _, err := d.NormalizeIsolation(core.IsolationNone); !core.IsCode(err, core.CodeUnsupportedIsolationLevel) {
		t.Errorf("NONE: expected %s, got %v", core.CodeUnsupportedIsolationLevel, err)
	}
}

func TestIsSerializationConflict(t *testing.T) {
	d := dialect{}
	deadlock := &gomysql.MySQLError{Number: 1213, Message: "Deadlock found"}
	lockWait := &gomysql.MySQLError{Number: 1205, Message: "Lock wait timeout"}
	syntax := &gomysql.MySQLError{Number: 1064, Message: "syntax error"}

	if !d.IsSerializationConflict(deadlock) || !d.IsSerializationConflict(lockWait) {
		t.Error("Deadlock/lock-wait errors must classify as conflicts")
	}
	if d.IsSerializationConflict(syntax) {
		t.Error("A syntax error is not a conflict")
	}
	// Wrapped vendor errors still classify.
	if !d.IsSerializationConflict(fmt.Errorf("exec: %w", deadlock)) {
		t.Error("Wrapped deadlock error must classify as a conflict")
	}
	if d.IsSerializationConflict(fmt.Errorf("plain error")) {
		t.Error("A non-mysql error is not a conflict")
	}
}
