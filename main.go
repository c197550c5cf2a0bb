package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/rand"

	"github.com/rhugonnet/scikit-gstat/internal/space"
)

func main() {
	var (
		addr   = flag.String("addr", ":8080", "bind to this address")
		debug  = flag.Bool("debug", false, "debugging mode")
		format = flag.String("format", "lines", "input format: lines or json")
		metric = flag.String("metric", "euclidean",
			"coordinate distance metric to use")
		maxDist = flag.Float64("max-dist", 0,
			"only record pairwise distances up to this cutoff; 0 for none")
		sampler = flag.String("sampler", "none",
			"pair subsampling strategy: none, probabilistic or raster")
		samples = flag.Float64("samples", 0,
			"subset size for the samplers, a count or a fraction below 1")
		runs = flag.Int("runs", 0, "sampling rounds for the raster sampler")
		seed = flag.Uint64("seed", 0,
			"seed for the samplers; 0 for a fresh one")
		shape = flag.String("shape", "",
			"raster grid size as COLSxROWS, e.g. 100x80")
		extent = flag.String("extent", "",
			"raster extent as xmin,xmax,ymin,ymax")
		timeout = flag.Int("timeout", 60, "request timeout in seconds")

		err   error
		input = io.NopCloser(os.Stdin)
	)

	flag.Parse()
	switch flag.NArg() {
	case 0:
	case 1:
		if arg := flag.Args()[0]; arg != "-" {
			input, err = os.Open(arg)
			if err != nil {
				log.Fatal(err)
			}
		}
	default:
		flag.Usage()
		os.Exit(1)
	}

	readCoords := readLines
	switch strings.ToLower(*format) {
	case "json":
		readCoords = readJSON
	case "lines":
	default:
		log.Fatalf("unknown input format %q", *format)
	}

	points := make(chan []float64, 1)
	go func() {
		defer close(points)
		defer input.Close()
		readCoords(input, points)
	}()

	var coords [][]float64
	for p := range points {
		coords = append(coords, p)
	}

	var rnd *rand.Rand
	if *seed != 0 {
		rnd = rand.New(rand.NewSource(*seed))
	}

	var sp distSpace
	switch strings.ToLower(*sampler) {
	case "", "none":
		sp, err = space.New(coords, *metric, *maxDist)
	case "probabilistic":
		sp, err = space.NewProbabilistic(coords, *metric, *maxDist, *samples, rnd)
	case "raster":
		var cfg space.RasterConfig
		cfg, err = rasterConfig(*shape, *extent, *runs, *maxDist, *samples, rnd)
		if err == nil {
			sp, err = space.NewRasterEquidistant(coords, *metric, cfg)
		}
	default:
		log.Fatalf("unknown sampler %q", *sampler)
	}
	if err != nil {
		log.Fatal(err)
	}

	t := time.Duration(*timeout) * time.Second
	idx := distIndex{
		debug:   *debug,
		sampler: strings.ToLower(*sampler),
		space:   sp,
	}
	h, err := idx.init(*metric)
	if err != nil {
		log.Fatal(err)
	}

	srv := http.Server{
		Addr:         *addr,
		Handler:      h,
		ReadTimeout:  t,
		WriteTimeout: t,
	}
	log.Fatal(srv.ListenAndServe())
}

// rasterConfig assembles a raster sampler configuration from the flag
// values.
func rasterConfig(shape, extent string, runs int, maxDist, samples float64, rnd *rand.Rand) (cfg space.RasterConfig, err error) {
	c, r, ok := strings.Cut(strings.ToLower(shape), "x")
	if !ok {
		return cfg, fmt.Errorf("malformed raster shape %q", shape)
	}
	if cfg.Shape[0], err = strconv.Atoi(c); err != nil {
		return cfg, err
	}
	if cfg.Shape[1], err = strconv.Atoi(r); err != nil {
		return cfg, err
	}

	fields := strings.Split(extent, ",")
	if len(fields) != 4 {
		return cfg, fmt.Errorf("malformed raster extent %q", extent)
	}
	for i, f := range fields {
		if cfg.Extent[i], err = strconv.ParseFloat(strings.TrimSpace(f), 64); err != nil {
			return cfg, err
		}
	}

	cfg.Runs = runs
	cfg.MaxDist = maxDist
	cfg.Samples = samples
	cfg.Rnd = rnd
	return cfg, nil
}

func readLines(r io.Reader, points chan<- []float64) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		p := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				log.Fatal(err)
			}
			p[i] = v
		}
		points <- p
	}
	if err := sc.Err(); err != nil {
		log.Fatal(err)
	}
}

func readJSON(r io.Reader, points chan<- []float64) {
	dec := json.NewDecoder(r)
	for dec.More() {
		var p []float64
		err := dec.Decode(&p)
		if err != nil {
			log.Fatal(err)
		}
		points <- p
	}
}
