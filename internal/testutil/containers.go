// Package testutil starts the backing services of the node store in
// containers. It is used by the gated integration tests and by the
// cmd/testcontainers executable. Settings come from the environment,
// usually loaded from a .env file.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/localnerve/jam-build-nodedb/data"
	"github.com/localnerve/jam-build-nodedb/internal/config"
)

// TestContainers holds the started containers and a Config that reaches them
// through their mapped ports
type TestContainers struct {
	Network             *testcontainers.DockerNetwork
	DBContainer         testcontainers.Container
	RedisContainer      testcontainers.Container
	AuthorizerContainer testcontainers.Container
	Config              *config.Config
}

// Terminate stops every started container and removes the network
func (tc *TestContainers) Terminate(t *testing.T) {
	ctx := context.Background()
	if tc.AuthorizerContainer != nil {
		if err := tc.AuthorizerContainer.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate Authorizer: %v", err)
		}
	}
	if tc.RedisContainer != nil {
		if err := tc.RedisContainer.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate Redis: %v", err)
		}
	}
	if tc.DBContainer != nil {
		if err := tc.DBContainer.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate Database: %v", err)
		}
	}
	if tc.Network != nil {
		if err := tc.Network.Remove(ctx); err != nil {
			logMessage(t, "Failed to remove network: %v", err)
		}
	}
}

// CreateAllTestContainers starts the database named by DB_IMAGE, and Redis
// and the Authorizer when REDIS_IMAGE and AUTHZ_IMAGE are set.
func CreateAllTestContainers(t *testing.T) (*TestContainers, error) {
	ctx := context.Background()
	tc := &TestContainers{}

	dbType := strings.ToLower(os.Getenv("DB_TYPE"))
	dbImage := os.Getenv("DB_IMAGE")
	if dbImage == "" {
		return nil, fmt.Errorf("DB_IMAGE is required")
	}

	nw, err := network.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create network: %w", err)
	}
	tc.Network = nw
	networkName := nw.Name

	// Database
	dbNetworkAlias := getEnv("DB_HOST", "database")
	tcpDBPort, err := nat.NewPort("tcp", getEnv("DB_PORT", defaultDBPort(dbType)))
	if err != nil {
		tc.Terminate(t)
		return nil, fmt.Errorf("failed to create DB port: %w", err)
	}
	dbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        dbImage,
			ExposedPorts: []string{string(tcpDBPort)},
			Env:          getDBInitEnvMap(dbType),
			WaitingFor:   wait.ForListeningPort(tcpDBPort).WithStartupTimeout(60 * time.Second),
			Networks:     []string{networkName},
			NetworkAliases: map[string][]string{
				networkName: {dbNetworkAlias},
			},
		},
		Started: true,
	})
	if err != nil {
		tc.Terminate(t)
		return nil, fmt.Errorf("failed to start database: %w", err)
	}
	tc.DBContainer = dbContainer

	dbHost, _ := dbContainer.Host(ctx)
	dbPort, _ := dbContainer.MappedPort(ctx, tcpDBPort)

	switch dbType {
	case "postgres", "postgresql":
		err = performPostgresDBInit(dbHost, dbPort)
	case "mysql", "mariadb":
		err = performMySQLDBInit(dbHost, dbPort)
	default:
		err = fmt.Errorf("unsupported DB_TYPE for containers: %q", dbType)
	}
	if err != nil {
		tc.Terminate(t)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	tc.Config = &config.Config{
		Port:              getEnv("PORT", "3000"),
		LogMode:           "development",
		DBType:            dbType,
		DBHost:            dbHost,
		DBPort:            dbPort.Port(),
		DBDatabase:        os.Getenv("DB_DATABASE"),
		DBUser:            os.Getenv("DB_USER"),
		DBPassword:        os.Getenv("DB_PASSWORD"),
		DBConnectionLimit: 5,
		DBLogLevel:        "warn",
		RedisChannel:      "nodedb.test." + uuid.NewString(),
		SearchMaxTake:     100,
	}
	logMessage(t, "DB_HOST=%s DB_PORT=%s", dbHost, dbPort.Port())

	if image := os.Getenv("REDIS_IMAGE"); image != "" {
		if err := tc.startRedis(ctx, image, networkName); err != nil {
			tc.Terminate(t)
			return nil, err
		}
	}

	if image := os.Getenv("AUTHZ_IMAGE"); image != "" {
		if err := tc.startAuthorizer(ctx, t, image, networkName, dbType, dbNetworkAlias, tcpDBPort); err != nil {
			tc.Terminate(t)
			return nil, err
		}
	}

	logMessage(t, "Node store testcontainers started successfully")
	return tc, nil
}

func (tc *TestContainers) startRedis(ctx context.Context, image, networkName string) error {
	tcpRedisPort := nat.Port("6379/tcp")
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{string(tcpRedisPort)},
			WaitingFor:   wait.ForListeningPort(tcpRedisPort).WithStartupTimeout(30 * time.Second),
			Networks:     []string{networkName},
			NetworkAliases: map[string][]string{
				networkName: {"redis"},
			},
		},
		Started: true,
	})
	if err != nil {
		return fmt.Errorf("failed to start redis: %w", err)
	}
	tc.RedisContainer = redisContainer

	host, _ := redisContainer.Host(ctx)
	port, _ := redisContainer.MappedPort(ctx, tcpRedisPort)
	tc.Config.RedisAddr = fmt.Sprintf("%s:%s", host, port.Port())
	return nil
}

func (tc *TestContainers) startAuthorizer(ctx context.Context, t *testing.T, image, networkName, dbType, dbAlias string, dbPort nat.Port) error {
	tcpAuthzPort, err := nat.NewPort("tcp", getEnv("AUTHZ_PORT", "8080"))
	if err != nil {
		return fmt.Errorf("failed to create Authorizer port: %w", err)
	}

	authzDatabase := getEnv("AUTHZ_DATABASE", "authorizer")
	var authzDBConnection string
	switch dbType {
	case "postgres", "postgresql":
		authzDBConnection = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"), dbAlias, dbPort.Port(), authzDatabase)
	default:
		authzDBConnection = fmt.Sprintf("root:%s@tcp(%s:%s)/%s",
			os.Getenv("DB_ROOT_PASSWORD"), dbAlias, dbPort.Port(), authzDatabase)
	}

	clientID := getEnv("AUTHZ_CLIENT_ID", "nodedb-test")
	authorizerContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{string(tcpAuthzPort)},
			Env: map[string]string{
				"ENV":           "production",
				"CLIENT_ID":     clientID,
				"PORT":          tcpAuthzPort.Port(),
				"DATABASE_TYPE": authorizerDBType(dbType),
				"DATABASE_NAME": authzDatabase,
				"DATABASE_URL":  authzDBConnection,
				"ADMIN_SECRET":  os.Getenv("AUTHZ_ADMIN_SECRET"),
				"ROLES":         "admin,user",
				"DEFAULT_ROLES": "user",
				"LOG_LEVEL":     "info",
			},
			WaitingFor: wait.ForLog("Authorizer running at PORT:").WithStartupTimeout(30 * time.Second),
			Networks:   []string{networkName},
			NetworkAliases: map[string][]string{
				networkName: {"authorizer"},
			},
		},
		Started: true,
	})
	if err != nil {
		return fmt.Errorf("failed to start Authorizer: %w", err)
	}
	tc.AuthorizerContainer = authorizerContainer

	host, _ := authorizerContainer.Host(ctx)
	port, _ := authorizerContainer.MappedPort(ctx, tcpAuthzPort)
	tc.Config.AuthzURL = fmt.Sprintf("http://%s:%s", host, port.Port())
	tc.Config.AuthzClientID = clientID
	logMessage(t, "AUTHZ_URL=%s", tc.Config.AuthzURL)
	return nil
}

func authorizerDBType(dbType string) string {
	if dbType == "postgresql" {
		return "postgres"
	}
	return dbType
}

func defaultDBPort(dbType string) string {
	switch dbType {
	case "postgres", "postgresql":
		return "5432"
	}
	return "3306"
}

func getDBInitEnvMap(dbType string) map[string]string {
	switch dbType {
	case "postgres", "postgresql":
		return map[string]string{
			"POSTGRES_PASSWORD": os.Getenv("DB_PASSWORD"),
			"POSTGRES_USER":     os.Getenv("DB_USER"),
			"POSTGRES_DB":       os.Getenv("DB_DATABASE"),
		}
	}
	return map[string]string{
		"MYSQL_ROOT_PASSWORD": os.Getenv("DB_ROOT_PASSWORD"),
		"MYSQL_DATABASE":      os.Getenv("DB_DATABASE"),
		"MYSQL_USER":          os.Getenv("DB_USER"),
		"MYSQL_PASSWORD":      os.Getenv("DB_PASSWORD"),
	}
}

// waitForPing retries until the freshly started server accepts connections
func waitForPing(db *sql.DB) error {
	var err error
	for i := 0; i < 30; i++ {
		if err = db.Ping(); err == nil {
			return nil
		}
		time.Sleep(1 * time.Second)
	}
	return fmt.Errorf("database not ready after 30 seconds: %w", err)
}

func performMySQLDBInit(dbHost string, dbPort nat.Port) error {
	db, err := sql.Open("mysql", fmt.Sprintf("root:%s@tcp(%s:%s)/", os.Getenv("DB_ROOT_PASSWORD"), dbHost, dbPort.Port()))
	if err != nil {
		return fmt.Errorf("failed to connect for setup: %w", err)
	}
	defer db.Close()

	if err := waitForPing(db); err != nil {
		return err
	}

	statements := []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", os.Getenv("DB_DATABASE")),
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", getEnv("AUTHZ_DATABASE", "authorizer")),
		fmt.Sprintf("GRANT ALL PRIVILEGES ON %s.* TO '%s'@'%%'", os.Getenv("DB_DATABASE"), os.Getenv("DB_USER")),
		"FLUSH PRIVILEGES",
		fmt.Sprintf("USE %s", os.Getenv("DB_DATABASE")),
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("%s : when executing > %s", err.Error(), stmt)
		}
	}

	// USE only binds one pooled connection
	db.SetMaxOpenConns(1)
	return executeSQL(db, data.InitdbMariaDBTables)
}

func performPostgresDBInit(dbHost string, dbPort nat.Port) error {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"), dbHost, dbPort.Port(), os.Getenv("DB_DATABASE"))
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to connect for setup: %w", err)
	}
	defer db.Close()

	if err := waitForPing(db); err != nil {
		return err
	}

	authzDatabase := getEnv("AUTHZ_DATABASE", "authorizer")
	var exists bool
	if err := db.QueryRow("SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", authzDatabase).Scan(&exists); err != nil {
		return fmt.Errorf("failed to look up %s: %w", authzDatabase, err)
	}
	if !exists {
		if _, err := db.Exec(fmt.Sprintf("CREATE DATABASE %s", authzDatabase)); err != nil {
			return fmt.Errorf("failed to create %s: %w", authzDatabase, err)
		}
	}

	return executeSQL(db, data.InitdbPostgresTables)
}

// executeSQL runs a script of semicolon terminated statements, dropping
// -- comments that are not inside quotes
func executeSQL(db *sql.DB, script string) error {
	lines := strings.Split(script, "\n")

	var ncls []string
	for _, l := range lines {
		ncls = append(ncls, excludeComment(l))
	}

	l := strings.Join(ncls, "\n")
	queries := strings.Split(l, ";")
	queries = queries[:len(queries)-1]

	for _, q := range queries {
		if strings.TrimSpace(q) == "" {
			continue
		}
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("%s : when executing > %s", err.Error(), q)
		}
	}
	return nil
}

func excludeComment(line string) string {
	d := "\""
	s := "'"
	c := "--"

	var nc string
	ck := line
	mx := len(line) + 1

	for {
		if len(ck) == 0 {
			return nc
		}

		di := strings.Index(ck, d)
		si := strings.Index(ck, s)
		ci := strings.Index(ck, c)

		if di < 0 {
			di = mx
		}
		if si < 0 {
			si = mx
		}
		if ci < 0 {
			ci = mx
		}

		var ei int

		if di < si && di < ci {
			nc += ck[:di+1]
			ck = ck[di+1:]
			ei = strings.Index(ck, d)
		} else if si < di && si < ci {
			nc += ck[:si+1]
			ck = ck[si+1:]
			ei = strings.Index(ck, s)
		} else if ci < di && ci < si {
			return nc + ck[:ci]
		} else {
			return nc + ck
		}

		if ei < 0 {
			return nc + ck
		}
		nc += ck[:ei+1]
		ck = ck[ei+1:]
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func logMessage(t *testing.T, format string, args ...any) {
	if t != nil {
		t.Logf(format, args...)
	} else {
		fmt.Printf(format+"\n", args...)
	}
}
