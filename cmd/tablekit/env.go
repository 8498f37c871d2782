package main

import (
	"context"
	"fmt"

	"github.com/nerrad567/tablekit/internal/infrastructure/config"
	"github.com/nerrad567/tablekit/internal/infrastructure/database"
	"github.com/nerrad567/tablekit/internal/infrastructure/influxdb"
	"github.com/nerrad567/tablekit/internal/infrastructure/logging"
	"github.com/nerrad567/tablekit/internal/infrastructure/mqtt"
	"github.com/nerrad567/tablekit/internal/observer"
	"github.com/nerrad567/tablekit/internal/table"
)

// env is the set of connections one command runs against.
type env struct {
	cfg    *config.Config
	log    *logging.Logger
	db     *database.DB
	acc    *table.Accessor
	mqtt   *mqtt.Client
	influx *influxdb.Client
}

// openEnv loads the config, opens the database and connects the optional
// MQTT change feed and InfluxDB metrics observers.
func openEnv(ctx context.Context, configPath string) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(cfg.Logging, version)
	log.Debug("configuration loaded", "path", configPath)

	e := &env{cfg: cfg, log: log}

	e.db, err = database.Open(ctx, databaseConfig(cfg.Database))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	log.Debug("database connected", "driver", cfg.Database.Driver)

	e.acc = table.New(e.db)
	e.acc.SetLogger(log.With("component", "table").Logger)
	e.acc.SetIDColumn(cfg.Database.IDColumn)

	var observers table.MultiObserver

	if cfg.MQTT.Enabled {
		e.mqtt, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			e.close()
			return nil, fmt.Errorf("connecting to MQTT: %w", err)
		}
		e.mqtt.SetLogger(log)
		e.mqtt.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		observers = append(observers, observer.NewChangeFeed(e.mqtt, log.With("component", "changefeed").Logger))
		log.Debug("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	}

	if cfg.InfluxDB.Enabled {
		e.influx, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			e.close()
			return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		e.influx.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		observers = append(observers, observer.NewMetrics(e.influx))
		log.Debug("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	if len(observers) > 0 {
		e.acc.SetObserver(observers)
	}
	return e, nil
}

// close releases every connection in reverse order of opening.
func (e *env) close() {
	if e.influx != nil {
		if err := e.influx.Close(); err != nil {
			e.log.Error("error closing InfluxDB", "error", err)
		}
	}
	if e.mqtt != nil {
		if err := e.mqtt.Close(); err != nil {
			e.log.Error("error closing MQTT", "error", err)
		}
	}
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			e.log.Error("error closing database", "error", err)
		}
	}
}

// healthCheck verifies every open connection.
func (e *env) healthCheck(ctx context.Context) map[string]error {
	results := map[string]error{"database": e.db.HealthCheck(ctx)}
	if e.mqtt != nil {
		results["mqtt"] = e.mqtt.HealthCheck(ctx)
	}
	if e.influx != nil {
		results["influxdb"] = e.influx.HealthCheck(ctx)
	}
	return results
}

func databaseConfig(c config.DatabaseConfig) database.Config {
	return database.Config{
		Driver:      c.Driver,
		Host:        c.Host,
		Port:        c.Port,
		Username:    c.Username,
		Password:    c.Password,
		Database:    c.Name,
		Path:        c.Path,
		WALMode:     c.WALMode,
		BusyTimeout: c.BusyTimeout,
		SSLMode:     c.SSLMode,
		Params:      c.Params,
	}
}
