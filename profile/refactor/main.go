// Profiling:
// go build ./profile/refactor
// go tool pprof -http=":8000" -nodefraction=0.001 ./refactor cpu.pprof

package main

import (
	"github.com/TheBitDrifter/depot"
	"github.com/pkg/profile"
)

type comp1 struct {
	V int64
	W int64
}

type comp2 struct {
	V int64
	W int64
}

func main() {
	rounds := 200
	entities := 10000
	p := profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	run(rounds, entities)
	p.Stop()
}

func run(rounds, numEntities int) {
	for range rounds {
		schema := depot.Factory.NewSchema(8)
		c1, _ := depot.RegisterComponent[comp1](schema)
		c2, _ := depot.RegisterComponent[comp2](schema)

		cfg := depot.DefaultConfig()
		cfg.MaxEntities = numEntities

		storage, err := depot.Factory.NewStorage(schema, cfg)
		if err != nil {
			panic(err)
		}

		// Small group first so reordering by population moves everything.
		small := numEntities / 10
		storage.NewEntities(small, c1, c2)
		storage.NewEntities(numEntities-small, c1)

		if err := storage.Refactor(); err != nil {
			panic(err)
		}
	}
}
