// Package database builds authenticated MySQL client command lines.
//
// Credentials never touch the disk: the client reads them from a bash
// process substitution passed as --defaults-extra-file.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"

	"github.com/systmms/opscreds/internal/logging"
)

const (
	DefaultHostname = "localhost"
	DefaultPort     = 3306

	charset = "utf8"
)

// Client binaries
const (
	BinMySQL      = "mysql"
	BinMySQLDump  = "mysqldump"
	BinMySQLCheck = "mysqlcheck"
)

var validate = validator.New()

// Connection describes how to reach and authenticate against a MySQL server.
type Connection struct {
	Hostname string `validate:"omitempty,hostname_rfc1123|ip"`
	Port     int    `validate:"omitempty,min=1,max=65535"`
	Username string `validate:"required"`
	Password string `validate:"required"`
	Name     string
}

// Opener opens a database handle. sql.Open satisfies it.
type Opener func(driverName, dsn string) (*sql.DB, error)

// Database is a validated connection. Only the database name may change
// after construction.
type Database struct {
	conn   Connection
	opener Opener
}

// New validates conn and applies the localhost:3306 defaults.
func New(conn Connection) (*Database, error) {
	if err := validate.Struct(conn); err != nil {
		return nil, fmt.Errorf("invalid database connection: %s", formatValidationError(err))
	}

	if conn.Hostname == "" {
		conn.Hostname = DefaultHostname
	}
	if conn.Port == 0 {
		conn.Port = DefaultPort
	}

	return &Database{conn: conn, opener: sql.Open}, nil
}

// ValidateEndpoint checks hostname and port with the rules New applies.
func ValidateEndpoint(hostname string, port int) error {
	if err := validate.Var(hostname, "required,hostname_rfc1123|ip"); err != nil {
		return fmt.Errorf("invalid database host %q", hostname)
	}
	if err := validate.Var(port, "min=1,max=65535"); err != nil {
		return fmt.Errorf("invalid database port %d", port)
	}
	return nil
}

// WithOpener replaces the function used by Ping to open connections.
func (d *Database) WithOpener(opener Opener) *Database {
	d.opener = opener
	return d
}

func (d *Database) Hostname() string { return d.conn.Hostname }
func (d *Database) Port() int        { return d.conn.Port }
func (d *Database) Username() string { return d.conn.Username }
func (d *Database) Name() string     { return d.conn.Name }

// SetName selects the database used by the built commands.
func (d *Database) SetName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("database name must not be empty")
	}
	d.conn.Name = name
	return nil
}

// MySQL returns the authenticated mysql command line.
func (d *Database) MySQL() string { return d.command(BinMySQL) }

// MySQLDump returns the authenticated mysqldump command line.
func (d *Database) MySQLDump() string { return d.command(BinMySQLDump) }

// MySQLCheck returns the authenticated mysqlcheck command line.
func (d *Database) MySQLCheck() string { return d.command(BinMySQLCheck) }

// Command returns the authenticated command line for one of the client binaries.
func (d *Database) Command(bin string) (string, error) {
	if err := checkClient(bin); err != nil {
		return "", err
	}
	return d.command(bin), nil
}

// RedactedCommand returns the command line of Command with the password
// replaced by [REDACTED], for display.
func (d *Database) RedactedCommand(bin string) (string, error) {
	if err := checkClient(bin); err != nil {
		return "", err
	}
	return d.build(bin, logging.Secret(d.conn.Password).String()), nil
}

func checkClient(bin string) error {
	switch bin {
	case BinMySQL, BinMySQLDump, BinMySQLCheck:
		return nil
	}
	return fmt.Errorf("unsupported mysql client %q", bin)
}

func (d *Database) command(bin string) string {
	return d.build(bin, quote(d.conn.Password))
}

// build assembles the command line around an already quoted password.
func (d *Database) build(bin, password string) string {
	parts := []string{
		bin,
		fmt.Sprintf(`--defaults-extra-file=<(printf "[client]\nuser = %%s\npassword = %%s" "%s" "%s")`,
			quote(d.conn.Username), password),
		"--host=" + d.conn.Hostname,
		"--port=" + strconv.Itoa(d.conn.Port),
		"--default-character-set=" + charset,
	}

	if d.conn.Name != "" {
		if bin == BinMySQLDump {
			parts = append(parts, "--databases="+d.conn.Name)
		} else {
			parts = append(parts, "--database="+d.conn.Name)
		}
	}

	return strings.Join(parts, " ")
}

// quote escapes s for use inside a double-quoted bash word.
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "$", `\$`, "`", "\\`")
	return r.Replace(s)
}

// DSN renders the go-sql-driver/mysql connection string.
func (d *Database) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = d.conn.Username
	cfg.Passwd = d.conn.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(d.conn.Hostname, strconv.Itoa(d.conn.Port))
	cfg.DBName = d.conn.Name
	cfg.Timeout = 10 * time.Second
	return cfg.FormatDSN()
}

// Ping opens a connection and checks that the server accepts the credentials.
func (d *Database) Ping(ctx context.Context) error {
	db, err := d.opener("mysql", d.DSN())
	if err != nil {
		return fmt.Errorf("failed to open connection to %s: %w", d.address(), err)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to reach %s: %w", d.address(), err)
	}
	return nil
}

func (d *Database) address() string {
	return net.JoinHostPort(d.conn.Hostname, strconv.Itoa(d.conn.Port))
}

func formatValidationError(err error) string {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err.Error()
	}

	messages := make([]string, 0, len(fieldErrors))
	for _, e := range fieldErrors {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("field '%s' is required", field))
		case "min", "max":
			messages = append(messages, fmt.Sprintf("field '%s' must be between 1 and 65535", field))
		case "hostname_rfc1123|ip":
			messages = append(messages, fmt.Sprintf("field '%s' must be a valid hostname or IP address", field))
		default:
			messages = append(messages, fmt.Sprintf("field '%s' validation failed on '%s' tag", field, e.Tag()))
		}
	}
	return strings.Join(messages, "; ")
}
