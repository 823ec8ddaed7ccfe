package source

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
)

// MySQLSource loads subject records from a MySQL table. Column names default
// to group_name, created_at and converted_at; when no observed column is
// configured every record is observed now.
type MySQLSource struct {
	DSN   string
	Table string

	GroupColumn     string
	CreatedColumn   string
	ConvertedColumn string
	ObservedColumn  string
}

func (s MySQLSource) Load() ([]Record, error) {
	dsn, err := toMySQLDSN(s.DSN)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	group := defaultColumn(s.GroupColumn, "group_name")
	created := defaultColumn(s.CreatedColumn, "created_at")
	converted := defaultColumn(s.ConvertedColumn, "converted_at")

	columns := fmt.Sprintf("%s, %s, %s", group, created, converted)
	if s.ObservedColumn != "" {
		columns = fmt.Sprintf("%s, %s", columns, s.ObservedColumn)
	}
	rows, err := db.Query(fmt.Sprintf("SELECT %s FROM %s", columns, s.Table))
	if err != nil {
		return nil, errors.Wrapf(err, "querying %s", s.Table)
	}
	defer rows.Close()

	now := time.Now()
	var records []Record
	for rows.Next() {
		var (
			g         sql.NullString
			createdAt time.Time
			converted sql.NullTime
			observed  sql.NullTime
		)
		dest := []interface{}{&g, &createdAt, &converted}
		if s.ObservedColumn != "" {
			dest = append(dest, &observed)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		r := Record{Group: g.String, CreatedAt: createdAt, ObservedAt: now}
		if converted.Valid {
			t := converted.Time
			r.ConvertedAt = &t
		}
		if observed.Valid {
			r.ObservedAt = observed.Time
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func defaultColumn(col, fallback string) string {
	if col == "" {
		return fallback
	}
	return col
}

// toMySQLDSN normalises a mysql:// or mariadb:// URL into the driver's DSN
// format; a DSN already in driver format passes through. parseTime is forced
// on so timestamp columns scan into time.Time.
func toMySQLDSN(dsn string) (string, error) {
	if strings.HasPrefix(dsn, "mysql://") || strings.HasPrefix(dsn, "mariadb://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", errors.Wrap(err, "parsing dsn")
		}
		user, pass := "", ""
		if u.User != nil {
			user = u.User.Username()
			pass, _ = u.User.Password()
		}
		db := strings.TrimPrefix(u.Path, "/")
		if user == "" || u.Host == "" || db == "" {
			return "", errors.New("dsn missing user, host or database")
		}
		return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true", user, pass, u.Host, db), nil
	}
	if !strings.Contains(dsn, "parseTime=true") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn = dsn + sep + "parseTime=true"
	}
	return dsn, nil
}
