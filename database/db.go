package database

import (
	"database/sql"
	"fmt"
	"log"
	"regexp"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/nocksapp/nocks-gateway/config"
)

// Declare a package-level variable to hold the singleton instance.
// Ensure the instance is not accessible outside the package.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn   *sql.DB
	driver string
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Driver, configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		instance = &Datasource{Conn: con, driver: configuration.DataSource.Driver}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

// ConnectDB opens and pings a connection for the given driver. Schema setup
// is handled by the migrate command, not here.
func ConnectDB(driver, dns string) (*sql.DB, error) {
	db, err := sql.Open(driver, dns)
	if err != nil {
		return nil, err
	}
	err = db.Ping()
	if err != nil {
		log.Printf("database Connection error ❌: %v", err)
		return nil, err
	}
	return db, nil
}

var placeholderPattern = regexp.MustCompile(`\$\d+`)

// rebind rewrites $N placeholders to ? for drivers that use ordinal markers.
// Queries in this package are written against the postgres dialect.
func (d *Datasource) rebind(query string) string {
	if d.driver == "mysql" {
		return placeholderPattern.ReplaceAllString(query, "?")
	}
	return query
}

func GenerateUUIDWithSuffix(module string) string {
	// Generate a new UUID
	id := uuid.New()

	// Convert the UUID to a string
	uuidStr := id.String()

	// Add the module suffix
	idWithSuffix := fmt.Sprintf("%s_%s", module, uuidStr)

	return idWithSuffix
}
