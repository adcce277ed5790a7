package config

// Default returns the baseline configuration before file values are applied.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: "~/.local/share/clipflow",
			LogDir:  "~/.local/share/clipflow/logs",
		},
		Source: Source{
			ScanLimit: 50,
		},
		Segments: Segments{
			DurationSeconds: 60,
			MinTailSeconds:  10,
			MaxPerItem:      10,
			Overlay:         true,
		},
		Publish: Publish{
			TitleSuffix:         "#shorts",
			DescriptionTemplate: "{title} - Part {part}/{total}\n\nFull video: {url}",
			Category:            "24",
			Privacy:             "public",
			CostUnits:           1600,
			RequestTimeout:      120,
		},
		Quota: Quota{
			DailyBudget: 10000,
			Timezone:    "America/Los_Angeles",
		},
		Scheduler: Scheduler{
			MaxItemsPerRun: 6,
			RetryCeiling:   3,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}
