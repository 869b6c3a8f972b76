// SPDX-License-Identifier: Apache-2.0

package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"
	"github.com/testcontainers/testcontainers-go/wait"

	ormdb "github.com/ormkit/ormkit/pkg/db"
)

// defaultMySQLVersion is the image tag tests run against when
// ORMKIT_TEST_MYSQL_VERSION is unset.
const defaultMySQLVersion = "8.0"

const testRootPassword = "ormkit-test"

// tHost/tPort hold the mapped host/port of the shared test container.
var tHost string
var tPort string

// SharedTestMain starts a MySQL container shared by every test in a package.
// Each test then connects and creates its own database via WithConnectionToContainer.
func SharedTestMain(m *testing.M) {
	ctx := context.Background()

	version := os.Getenv("ORMKIT_TEST_MYSQL_VERSION")
	if version == "" {
		version = defaultMySQLVersion
	}

	ctr, err := mysql.Run(ctx, "mysql:"+version,
		mysql.WithDatabase("ormkit_root"),
		mysql.WithUsername("root"),
		mysql.WithPassword(testRootPassword),
		testcontainers.WithWaitStrategy(wait.ForLog("ready for connections").WithOccurrence(2).WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		os.Exit(1)
	}

	host, err := ctr.Host(ctx)
	if err != nil {
		os.Exit(1)
	}
	port, err := ctr.MappedPort(ctx, "3306/tcp")
	if err != nil {
		os.Exit(1)
	}
	tHost, tPort = host, port.Port()

	exitCode := m.Run()

	if err := ctr.Terminate(ctx); err != nil {
		log.Printf("Failed to terminate container: %v", err)
	}

	os.Exit(exitCode)
}

func rootDSN() string {
	return fmt.Sprintf("root:%s@tcp(%s:%s)/", testRootPassword, tHost, tPort)
}

func dsnFor(dbName string) string {
	return fmt.Sprintf("root:%s@tcp(%s:%s)/%s?parseTime=true&multiStatements=true", testRootPassword, tHost, tPort, dbName)
}

// WithConnectionToContainer creates a fresh, empty database in the shared
// container and hands the caller an ormkit db.DB over it plus its name.
func WithConnectionToContainer(t *testing.T, fn func(database ormdb.DB, dbName string)) {
	t.Helper()
	ctx := context.Background()

	dbName := randomDBName()

	root, err := sql.Open("mysql", rootDSN())
	if err != nil {
		t.Fatal(err)
	}
	defer root.Close()

	if _, err := root.ExecContext(ctx, "CREATE DATABASE `"+dbName+"`"); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_, _ = root.ExecContext(context.Background(), "DROP DATABASE IF EXISTS `"+dbName+"`")
	})

	sqlDB, err := sql.Open("mysql", dsnFor(dbName))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	fn(&ormdb.MDB{DB: sqlDB}, dbName)
}
