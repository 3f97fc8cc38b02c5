// Copyright 2023 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// agg-bench drives the aggregation core end to end: a set of dense
// groupers fills partial results in parallel, each partial result is
// sorted, and the merge engine combines them into one stream.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fossabot/druid/pkg/container/seq"
	"github.com/fossabot/druid/pkg/groupby"
	"github.com/fossabot/druid/pkg/groupby/agg"
	"github.com/fossabot/druid/pkg/logutil"
	"github.com/fossabot/druid/pkg/merge"
)

var (
	configFile = flag.String("cfg", "", "toml configuration used to run the benchmark")
)

type Config struct {
	Log   logutil.LogConfig `toml:"log"`
	Bench BenchConfig       `toml:"bench"`
}

type BenchConfig struct {
	// Cardinality is the dictionary id range per dimension.
	Cardinality int   `toml:"cardinality"`
	// Rows is the total row count, split evenly across groupers.
	Rows        int   `toml:"rows"`
	// Groupers is the count of partial aggregation units.
	Groupers    int   `toml:"groupers"`
	// Parallelism is the merge engine's worker degree.
	Parallelism int   `toml:"parallelism"`
	// Seed seeds the per-grouper row streams.
	Seed        int64 `toml:"seed"`
}

func defaultConfig() Config {
	return Config{
		Log: logutil.LogConfig{Level: "info", Format: "console"},
		Bench: BenchConfig{
			Cardinality: 1 << 16,
			Rows:        1 << 22,
			Groupers:    8,
			Parallelism: 4,
			Seed:        time.Now().UnixNano(),
		},
	}
}

func main() {
	flag.Parse()

	cfg := defaultConfig()
	if *configFile != "" {
		if _, err := toml.DecodeFile(*configFile, &cfg); err != nil {
			panic(fmt.Sprintf("failed to parse config from %s, error: %s", *configFile, err))
		}
	}
	logutil.SetupGlobalLogger(cfg.Log)

	if err := run(cfg.Bench); err != nil {
		logutil.Fatal("benchmark failed", zap.Error(err))
	}
}

func run(cfg BenchConfig) error {
	logutil.Infof("aggregating %d rows over cardinality %d with %d groupers, merge parallelism %d",
		cfg.Rows, cfg.Cardinality, cfg.Groupers, cfg.Parallelism)

	start := time.Now()
	partials := make([][]groupby.Entry[int32], cfg.Groupers)

	var eg errgroup.Group
	for i := 0; i < cfg.Groupers; i++ {
		i := i
		eg.Go(func() error {
			entries, err := aggregatePartial(cfg, cfg.Seed+int64(i))
			if err != nil {
				return err
			}
			partials[i] = entries
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	aggregated := time.Since(start)

	inputs := make([]seq.Iterator[groupby.Entry[int32]], len(partials))
	for i, entries := range partials {
		inputs[i] = seq.FromSlice(entries)
	}

	mergeStart := time.Now()
	merged := merge.Parallel(nil, cfg.Parallelism, compareEntries, inputs)
	defer merged.Close()

	total := 0
	for {
		if _, ok := merged.Next(); !ok {
			break
		}
		total++
	}

	logutil.Infof("aggregation took %v, merge of %d entries took %v",
		aggregated, total, time.Since(mergeStart))
	return nil
}

// aggregatePartial is one partial aggregation unit: a dense grouper over
// its own buffer, fed with a random row stream, drained into a sorted
// entry slice.  Sorting happens here because the dense grouper's sorted
// iteration mode degrades to scan order.
func aggregatePartial(cfg BenchConfig, seed int64) ([]groupby.Entry[int32], error) {
	var row int64
	factories := []agg.AggregatorFactory{
		agg.NewCountFactory(),
		agg.NewSumInt64Factory(func() int64 { return row }),
	}
	sizes := make([]int, len(factories))
	for i, factory := range factories {
		sizes[i] = factory.MaxSize()
	}

	serde := groupby.NewInt32KeySerde()
	capacity, err := groupby.RequiredCapacity(serde.KeySize(), cfg.Cardinality, sizes)
	if err != nil {
		return nil, err
	}
	buffer := make([]byte, capacity)

	grouper, err := groupby.NewArrayGrouper(
		func() []byte { return buffer },
		serde,
		factories,
		cfg.Cardinality,
	)
	if err != nil {
		return nil, err
	}
	if err = grouper.Init(); err != nil {
		return nil, err
	}
	defer grouper.Close()

	rng := rand.New(rand.NewSource(seed))
	rows := cfg.Rows / cfg.Groupers
	for i := 0; i < rows; i++ {
		// One row in every 512 has no dictionary value at all.
		id := int32(rng.Intn(cfg.Cardinality))
		if rng.Intn(512) == 0 {
			id = -1
		}
		row = int64(rng.Intn(1000))
		result, err := grouper.AggregateInt(id)
		if err != nil {
			return nil, err
		}
		if !result.Ok() {
			logutil.Warnf("aggregation hit capacity: %s", result.Reason())
			break
		}
	}

	entries := seq.Collect(grouper.Iterator(false))
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

func compareEntries(a, b groupby.Entry[int32]) int {
	switch {
	case a.Key < b.Key:
		return -1
	case a.Key > b.Key:
		return 1
	default:
		return 0
	}
}
