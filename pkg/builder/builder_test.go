// SPDX-License-Identifier: Apache-2.0

package builder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ormkit/ormkit/pkg/builder"
)

func TestCreateTableRendersColumnsPrimaryKeyAndOptions(t *testing.T) {
	b := builder.New(builder.MySQLDialect{})

	tbl := b.CreateTable("users")
	tbl.Column("id").Integer().Unsigned().NotNull().AutoIncrement()
	tbl.Column("name").String(255).NotNull()
	tbl.PrimaryKey("id")
	tbl.Engine("InnoDB")
	tbl.Charset("utf8mb4")
	tbl.Collation("utf8mb4_general_ci")

	got := tbl.ToSQL()

	assert.Contains(t, got, "CREATE TABLE `users` (")
	assert.Contains(t, got, "`id` INT UNSIGNED NOT NULL AUTO_INCREMENT")
	assert.Contains(t, got, "`name` VARCHAR(255) NOT NULL")
	assert.Contains(t, got, "PRIMARY KEY (`id`)")
	assert.Contains(t, got, "ENGINE=InnoDB")
	assert.Contains(t, got, "DEFAULT CHARSET=utf8mb4")
	assert.Contains(t, got, "COLLATE=utf8mb4_general_ci")
	assert.True(t, got[len(got)-1] == ';')
}

func TestCreateTableWithForeignKey(t *testing.T) {
	b := builder.New(builder.MySQLDialect{})

	tbl := b.CreateTable("orders")
	tbl.Column("id").Integer().NotNull().AutoIncrement()
	tbl.Column("user_id").Integer().NotNull()
	tbl.ForeignKey("fk_orders_user").Columns("user_id").References("users", "id").OnDelete("CASCADE")

	got := tbl.ToSQL()

	assert.Contains(t, got, "CONSTRAINT `fk_orders_user` FOREIGN KEY (`user_id`) REFERENCES `users` (`id`) ON DELETE CASCADE")
}

func TestAlterTableAddDropAndModifyColumns(t *testing.T) {
	b := builder.New(builder.MySQLDialect{})

	tbl := b.AlterTable("users")
	tbl.DropColumn("legacy_flag")
	tbl.Column("nickname").String(64)
	c := builder.NewColumn("name").String(128).NotNull()
	tbl.ModifyColumn(c)

	got := tbl.ToSQL()

	assert.Contains(t, got, "ALTER TABLE `users`")
	assert.Contains(t, got, "DROP COLUMN `legacy_flag`")
	assert.Contains(t, got, "ADD COLUMN `nickname` VARCHAR(64)")
	assert.Contains(t, got, "MODIFY COLUMN `name` VARCHAR(128) NOT NULL")
}

func TestAlterTableDropForeignKey(t *testing.T) {
	b := builder.New(builder.MySQLDialect{})

	tbl := b.AlterTable("orders")
	tbl.DropForeignKey("fk_orders_user")

	got := tbl.ToSQL()

	assert.Equal(t, "ALTER TABLE `orders` DROP FOREIGN KEY `fk_orders_user`;", got)
}

func TestDropTable(t *testing.T) {
	b := builder.New(builder.MySQLDialect{})
	assert.Equal(t, "DROP TABLE `widgets`;", b.DropTable("widgets"))
}

func TestDefaultNullIsOmitted(t *testing.T) {
	b := builder.New(builder.MySQLDialect{})

	tbl := b.CreateTable("t")
	tbl.Column("id").Integer()
	tbl.Column("note").Text().Default("NULL")

	got := tbl.ToSQL()

	assert.NotContains(t, got, "DEFAULT")
}

func TestEnumRendersQuotedValues(t *testing.T) {
	b := builder.New(builder.MySQLDialect{})

	tbl := b.CreateTable("t")
	tbl.Column("status").Enum("active", "inactive").NotNull()

	got := tbl.ToSQL()

	assert.Contains(t, got, "ENUM('active','inactive')")
}

func TestDecimalRendersPrecisionAndScale(t *testing.T) {
	b := builder.New(builder.MySQLDialect{})

	tbl := b.CreateTable("t")
	tbl.Column("price").Decimal(10, 2).Unsigned().NotNull()

	got := tbl.ToSQL()

	assert.Contains(t, got, "DECIMAL(10,2) UNSIGNED")
}

func TestMySQLDialectQuoting(t *testing.T) {
	d := builder.MySQLDialect{}

	assert.Equal(t, "`my``col`", d.QuoteIdentifier("my`col"))
	assert.Equal(t, "'it''s'", d.QuoteLiteral("it's"))
}
