package main

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"github.com/rhugonnet/scikit-gstat/internal/metric"
	"github.com/rhugonnet/scikit-gstat/internal/space"
)

// distSpace is the part of the space API the HTTP surface works with.
// All space flavors implement it.
type distSpace interface {
	Len() int
	MetricName() string
	MaxDist() float64
	Distances() (space.Dists, error)
	Diagonal(subset []int) ([]float64, error)
	FindClosest(i int, maxDist float64, k int) ([]int, error)
}

type distIndex struct {
	debug   bool
	sampler string
	metric  metric.Func

	space distSpace
	dists space.Dists
}

func (i *distIndex) init(metricName string) (h http.Handler, err error) {
	i.metric, err = metric.ByName(metricName)
	if err != nil {
		return
	}

	if i.debug {
		log.Print("building distance matrix")
	}
	i.dists, err = i.space.Distances()
	if err != nil {
		return
	}
	if i.debug {
		log.Printf("done, %d points", i.space.Len())
	}

	r := httprouter.New()
	r.POST("/diagonal", i.diagonal)
	r.POST("/distance", i.distance)
	r.GET("/info", i.info)
	r.POST("/neighbors", i.neighbors)
	r.GET("/row/:idx", i.row)
	return r, nil
}

// distance computes the distance between a pair of input points,
// without considering the indexed coordinates.
func (i *distIndex) distance(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var pts [2][]float64
	err := json.NewDecoder(r.Body).Decode(&pts)
	if err == nil && len(pts[0]) != len(pts[1]) {
		err = errors.New("points of unequal dimension")
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	d := i.metric(pts[0], pts[1])
	json.NewEncoder(w).Encode(struct {
		M string  `json:"metric"`
		D float64 `json:"distance"`
	}{
		i.space.MetricName(), d,
	})
}

// info sends some information about the index.
func (i *distIndex) info(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	json.NewEncoder(w).Encode(map[string]interface{}{
		"maxdist": i.space.MaxDist(),
		"metric":  i.space.MetricName(),
		"sampler": i.sampler,
		"size":    i.space.Len(),
		"sparse":  i.dists.Sparse(),
	})
}

// diagonal sends the condensed upper-triangle distance vector, for the
// whole space or the subset of point indices in the request body.
func (i *distIndex) diagonal(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var params struct {
		Subset []int `json:"subset"`
	}
	err := json.NewDecoder(r.Body).Decode(&params)
	if err == io.EOF {
		err = nil // an empty body means the whole space
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	for _, j := range params.Subset {
		if j < 0 || j >= i.space.Len() {
			writeError(w, http.StatusBadRequest,
				errors.New("subset index out of range: "+strconv.Itoa(j)))
			return
		}
	}

	d, err := i.space.Diagonal(params.Subset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	json.NewEncoder(w).Encode(d)
}

func (i *distIndex) neighbors(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	params := defaultParams
	err := json.NewDecoder(r.Body).Decode(&params)
	switch {
	case params.Index < 0:
		err = errors.New("missing or negative point index")
	case params.MaxDist < 0:
		err = errors.New("negative maximum distance " +
			strconv.FormatFloat(params.MaxDist, 'f', -1, 64))
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	nb, err := i.space.FindClosest(params.Index, params.MaxDist, params.K)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if nb == nil {
		nb = []int{}
	}
	json.NewEncoder(w).Encode(nb)
}

// row sends the stored entries of one row of the distance matrix.
func (i *distIndex) row(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	idx, err := strconv.Atoi(p.ByName("idx"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if idx < 0 || idx >= i.space.Len() {
		writeError(w, http.StatusNotFound,
			errors.New("no point with index "+strconv.Itoa(idx)))
		return
	}

	cols, dists := i.dists.Row(idx)
	if cols == nil {
		cols, dists = []int{}, []float64{}
	}
	json.NewEncoder(w).Encode(struct {
		C []int     `json:"indices"`
		D []float64 `json:"distances"`
	}{
		cols, dists,
	})
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{
		err.Error(),
	})
}

type neighborParams struct {
	Index   int     `json:"index"`
	K       int     `json:"k"`
	MaxDist float64 `json:"maxdist"`
}

var defaultParams = neighborParams{
	Index:   -1, // must be set by caller
	K:       0,  // no limit
	MaxDist: 0,  // inherit the space cutoff
}
