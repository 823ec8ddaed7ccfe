package model

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"hash/fnv"
	"math"
	"strconv"

	"github.com/peterbourgon/diskv"
)

// CacheMissError is returned by a ParamsCacher when no parameters are stored
// under the probed key.
var CacheMissError = errors.New("cache miss error")

// BlockTransform determines how diskv should partition folders.
func BlockTransform(blockSize int) func(string) []string {
	return func(s string) []string {
		var (
			sliceSize = len(s) / blockSize
			pathSlice = make([]string, sliceSize)
		)
		for i := 0; i < sliceSize; i++ {
			from, to := i*blockSize, (i*blockSize)+blockSize
			pathSlice[i] = s[from:to]
		}
		return pathSlice
	}
}

// ParamsCacher models a way to cache (either persistent or not) the fitted
// parameters of a parametric model keyed by the data it was fit on.
type ParamsCacher interface {
	Get(key uint64) (Params, error)
	Set(key uint64, p Params) error
}

type mapParamsCache struct {
	m map[uint64]Params
}

func (c mapParamsCache) Get(key uint64) (Params, error) {
	if p, ok := c.m[key]; ok {
		return p, nil
	}
	return nil, CacheMissError
}

func (c mapParamsCache) Set(key uint64, p Params) error {
	c.m[key] = p
	return nil
}

// NewMapParamsCache creates a params cache out of a regular go map.
func NewMapParamsCache() ParamsCacher {
	return mapParamsCache{make(map[uint64]Params)}
}

type diskvParamsCache struct {
	*diskv.Diskv
}

func (c diskvParamsCache) Get(key uint64) (Params, error) {
	b, err := c.Read(strconv.FormatUint(key, 10))
	if err != nil {
		return nil, CacheMissError
	}
	var p Params
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&p); err != nil {
		return nil, err
	}
	return p, nil
}

func (c diskvParamsCache) Set(key uint64, p Params) error {
	var buff bytes.Buffer
	if err := gob.NewEncoder(&buff).Encode(p); err != nil {
		return err
	}
	return c.Write(strconv.FormatUint(key, 10), buff.Bytes())
}

// NewDiskvParamsCache creates a new on-disk params cache rooted at path.
func NewDiskvParamsCache(path string) ParamsCacher {
	return diskvParamsCache{diskv.New(diskv.Options{
		BasePath:     path,
		Transform:    BlockTransform(8),
		CacheSizeMax: 4096 * 1024,
	})}
}

// FitKey hashes a model name together with an observation triple. Two fits
// share a key exactly when the same kind of model is fit on the same data.
func FitKey(m Model, obs Observations) uint64 {
	h := fnv.New64a()
	h.Write([]byte(m.Name()))
	buff := make([]byte, 8)
	for i := range obs.C {
		binary.LittleEndian.PutUint64(buff, math.Float64bits(obs.C[i]))
		h.Write(buff)
		binary.LittleEndian.PutUint64(buff, math.Float64bits(obs.N[i]))
		h.Write(buff)
		if obs.B[i] {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
	}
	return h.Sum64()
}

// FitCached fits m through the cache: a parametric model with stored
// parameters for this data is restored without refitting, and a fresh fit
// stores its parameters on the way out. Models whose fitted state is not a
// compact parameter map are simply fit.
func FitCached(m Model, obs Observations, cache ParamsCacher) error {
	pm, ok := m.(Parametric)
	if !ok {
		return m.Fit(obs)
	}
	key := FitKey(m, obs)
	if p, err := cache.Get(key); err == nil {
		pm.RestoreParams(p)
		return nil
	}
	if err := m.Fit(obs); err != nil {
		return err
	}
	return cache.Set(key, pm.Params())
}
