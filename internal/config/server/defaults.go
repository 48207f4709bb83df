package server

import "github.com/spf13/viper"

func GetServerDefault() BaseServerConfig {
	return BaseServerConfig{
		ShutdownTimeout: "10s",

		Log: LogServerConfig{
			Level:      "INFO",
			TimeFormat: "2006-01-02 15:04:05",
			File:       "",
			NoColor:    false,
			JSON:       false,
			NoTerminal: false,
			Rotation: LogServerRotationConfig{
				MaxSize:    128,
				MaxBackups: 5,
				MaxAge:     16,
				Compress:   false,
			},
		},

		Database: DatabaseServerConfig{
			Type:        "sqlite",
			Retention:   "168h",
			RetryDelays: []string{"200ms", "500ms", "1s"},
			SQLite: DatabaseSQLiteConfig{
				Path: "godeid.db",
			},
			Redis: DatabaseRedisConfig{
				Addr:     "localhost:6379",
				Password: "",
				DB:       0,
			},
		},

		Plugins: PluginServerConfig{
			ReplaceTags: "",
			Outgoing:    "dicom-deidentifier",
			Incoming:    "dicom-reidentifier",
		},
	}
}

func setDefaults() {
	defaults := GetServerDefault()

	viper.SetDefault("shutdown_timeout", defaults.ShutdownTimeout)

	viper.SetDefault("log.level", defaults.Log.Level)
	viper.SetDefault("log.time_format", defaults.Log.TimeFormat)
	viper.SetDefault("log.file", defaults.Log.File)
	viper.SetDefault("log.no_color", defaults.Log.NoColor)
	viper.SetDefault("log.json", defaults.Log.JSON)
	viper.SetDefault("log.no_terminal", defaults.Log.NoTerminal)
	viper.SetDefault("log.rotation.max_size", defaults.Log.Rotation.MaxSize)
	viper.SetDefault("log.rotation.max_backups", defaults.Log.Rotation.MaxBackups)
	viper.SetDefault("log.rotation.max_age", defaults.Log.Rotation.MaxAge)
	viper.SetDefault("log.rotation.compress", defaults.Log.Rotation.Compress)

	viper.SetDefault("database.type", defaults.Database.Type)
	viper.SetDefault("database.retention", defaults.Database.Retention)
	viper.SetDefault("database.retry_delays", defaults.Database.RetryDelays)
	viper.SetDefault("database.sqlite.path", defaults.Database.SQLite.Path)
	viper.SetDefault("database.redis.addr", defaults.Database.Redis.Addr)
	viper.SetDefault("database.redis.password", defaults.Database.Redis.Password)
	viper.SetDefault("database.redis.db", defaults.Database.Redis.DB)

	viper.SetDefault("plugins.replace_tags", defaults.Plugins.ReplaceTags)
	viper.SetDefault("plugins.outgoing", defaults.Plugins.Outgoing)
	viper.SetDefault("plugins.incoming", defaults.Plugins.Incoming)
}
