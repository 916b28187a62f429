package config

import (
	"flag"
)

type Config struct {
	StoreFile  string
	StartId    int32 // first identifier the engine assigns
	InitialCap int   // backing capacity of a fresh store
}

func NewConfig() *Config {
	f := flag.String("STORE_FILE", "db/rows.data", "store file")
	s := flag.Int("START_ID", 1, "first record identifier")
	c := flag.Int("INITIAL_CAP", 100, "initial store capacity")
	flag.Parse()

	return &Config{
		StoreFile:  *f,
		StartId:    int32(*s),
		InitialCap: *c,
	}
}
