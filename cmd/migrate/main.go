package main

import (
	"database/sql"
	"errors"
	"flag"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"ride_ledger/internal/config"
	"ride_ledger/internal/logger"
)

func main() {
	path := flag.String("path", "file://migrations", "migration source URL")
	down := flag.Bool("down", false, "roll back every migration")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	logger.Setup("", cfg.Log.Level)
	if cfg.DB.Driver != "postgres" {
		logrus.WithField("driver", cfg.DB.Driver).Fatal("migrations only target postgres; sqlite is migrated on server start")
	}

	if err := waitForDB(cfg.DB.URL(), 10, 3*time.Second); err != nil {
		logrus.WithError(err).Fatal("could not connect to the database")
	}

	m, err := migrate.New(*path, cfg.DB.URL())
	if err != nil {
		logrus.WithError(err).Fatal("could not start migrations")
	}
	defer m.Close()

	if *down {
		err = m.Down()
	} else {
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logrus.WithError(err).Fatal("migration failed")
	}

	version, dirty, _ := m.Version()
	logrus.WithFields(logrus.Fields{"version": version, "dirty": dirty}).Info("Migrations applied successfully!")
}

// waitForDB retries until postgres answers a ping.
func waitForDB(url string, attempts int, delay time.Duration) error {
	var err error
	for i := 1; i <= attempts; i++ {
		var db *sql.DB
		db, err = sql.Open("postgres", url)
		if err == nil {
			err = db.Ping()
			db.Close()
		}
		if err == nil {
			logrus.Info("Connected to the database successfully.")
			return nil
		}
		logrus.WithField("attempt", i).Info("Waiting for the database to be ready...")
		time.Sleep(delay)
	}
	return err
}
