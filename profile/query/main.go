// Profiling:
// go build ./profile/query
// go tool pprof -http=":8000" -nodefraction=0.001 ./query cpu.prof

package main

import (
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/TheBitDrifter/depot"
)

type comp1 struct {
	V int64
	W int64
}

type comp2 struct {
	V int64
	W int64
}

type comp3 struct {
	V int64
	W int64
}

type comp4 struct {
	V int64
	W int64
}

type comp5 struct {
	V int64
	W int64
}

type comp6 struct {
	V int64
	W int64
}

func main() {
	f, _ := os.Create("cpu.prof")
	_ = pprof.StartCPUProfile(f)
	defer pprof.StopCPUProfile()

	rounds := 5
	iters := 1000
	entities := 100000
	run(rounds, iters, entities)

	memFile, _ := os.Create("mem.prof")
	defer memFile.Close()
	runtime.GC()
	_ = pprof.WriteHeapProfile(memFile)
}

func run(rounds, iters, numEntities int) {
	for range rounds {
		schema := depot.Factory.NewSchema(8)
		c1, _ := depot.RegisterComponent[comp1](schema)
		c2, _ := depot.RegisterComponent[comp2](schema)
		c3, _ := depot.RegisterComponent[comp3](schema)
		c4, _ := depot.RegisterComponent[comp4](schema)
		c5, _ := depot.RegisterComponent[comp5](schema)
		c6, _ := depot.RegisterComponent[comp6](schema)

		cfg := depot.DefaultConfig()
		cfg.MaxEntities = numEntities

		storage, err := depot.Factory.NewStorage(schema, cfg)
		if err != nil {
			panic(err)
		}
		storage.NewEntities(numEntities, c1, c2, c3, c4, c5, c6)

		query := depot.Factory.NewQuery()
		query.And(c1, c2, c3, c4, c5, c6)
		cursor := depot.Factory.NewCursor(query, storage)

		for range iters {
			for cursor.Next() {
				a := c1.GetFromCursor(cursor)
				b := c2.GetFromCursor(cursor)
				a.V += b.V
				a.W += b.W
			}
		}
	}
}
