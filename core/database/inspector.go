package database

import (
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
)

// ColumnInfo matches the output of SHOW COLUMNS.
type ColumnInfo struct {
	Field   string
	Type    string
	Null    string
	Key     string
	Default *string // NULL default is possible
	Extra   string
}

// SchemaIssue describes a table of the record schema that does not match the models.
type SchemaIssue struct {
	Table          string   `json:"table"`
	MissingTable   bool     `json:"missing_table,omitempty"`
	MissingColumns []string `json:"missing_columns,omitempty"`
}

func (i SchemaIssue) String() string {
	if i.MissingTable {
		return fmt.Sprintf("table %s is missing", i.Table)
	}
	return fmt.Sprintf("table %s lacks columns %s", i.Table, strings.Join(i.MissingColumns, ", "))
}

// GetTableColumns retrieves the column definitions for a given table.
func GetTableColumns(db *gorm.DB, tableName string) ([]ColumnInfo, error) {
	var columns []ColumnInfo
	if db.Dialector.Name() == "sqlite" {
		type sqliteColumn struct {
			Cid        int
			Name       string
			Type       string
			Notnull    int
			DefaultVal *string
			Pk         int
		}
		var sqliteCols []sqliteColumn
		if err := db.Raw(fmt.Sprintf("PRAGMA table_info('%s')", tableName)).Scan(&sqliteCols).Error; err != nil {
			return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
		}
		for _, col := range sqliteCols {
			columns = append(columns, ColumnInfo{
				Field: strings.ToLower(col.Name),
				Type:  strings.ToLower(col.Type),
			})
		}
		return columns, nil
	}

	err := db.Raw(fmt.Sprintf("SHOW COLUMNS FROM `%s`", tableName)).Scan(&columns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
	}
	for i := range columns {
		columns[i].Type = strings.ToLower(columns[i].Type)
		columns[i].Field = strings.ToLower(columns[i].Field)
	}
	return columns, nil
}

// Migrate creates or extends the record schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate record schema: %w", err)
	}
	return nil
}

// CheckSchema compares the live tables with the models and lists every mismatch.
// An empty result means the schema is usable.
func CheckSchema(db *gorm.DB) ([]SchemaIssue, error) {
	var issues []SchemaIssue
	for _, model := range Models() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("failed to parse model %T: %w", model, err)
		}
		table := stmt.Schema.Table

		if !db.Migrator().HasTable(table) {
			issues = append(issues, SchemaIssue{Table: table, MissingTable: true})
			continue
		}
		columns, err := GetTableColumns(db, table)
		if err != nil {
			return nil, err
		}

		present := make(map[string]bool, len(columns))
		for _, c := range columns {
			present[c.Field] = true
		}
		var missing []string
		for _, name := range stmt.Schema.DBNames {
			if !present[strings.ToLower(name)] {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			issues = append(issues, SchemaIssue{Table: table, MissingColumns: missing})
		}
	}
	return issues, nil
}
