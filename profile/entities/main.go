// Profiling:
// go build ./profile/entities
// go tool pprof -http=":8000" -nodefraction=0.001 ./entities mem.pprof

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
	rounds := 50
	iters := 1000
	entities := 1000
	p := profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook)
	run(rounds, iters, entities)
	p.Stop()
}

func run(rounds, iters, numEntities int) {
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

		query := depot.Factory.NewQuery()
		query.And(c1, c2)
		cursor := depot.Factory.NewCursor(query, storage)

		for range iters {
			storage.NewEntities(numEntities, c1, c2)

			doomed := []depot.Entity{}
			for cursor.Next() {
				doomed = append(doomed, cursor.CurrentEntity())
				a := c1.GetFromCursor(cursor)
				b := c2.GetFromCursor(cursor)
				a.V += b.V
				a.W += b.W
			}
			if err := storage.DestroyEntities(doomed...); err != nil {
				panic(err)
			}
		}
	}
}
