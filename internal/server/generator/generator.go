// Package generator produces synthetic user records.
package generator

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/dmitrijs2005/fastsearch/internal/server/models"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidCount is returned when a non-positive number of records is requested.
var ErrInvalidCount = errors.New("record count must be positive")

// chunkSize is the number of records one worker produces per task. Chunk
// boundaries do not depend on the worker count, so seeded output is stable.
const chunkSize = 500

var directions = []string{
	"North", "Northeast", "East", "Southeast", "South", "Southwest", "West", "Northwest",
}

// Column widths of the users table.
const (
	maxShortText  = 50
	maxNameText   = 200
	maxPostalCode = 10
)

type Config struct {
	// Workers bounds concurrent chunk generation. Values below 1 mean 1.
	Workers int
	// Seed makes output reproducible when non-zero.
	Seed          uint64
	ReferenceDate time.Time
	MinAge        int
	MaxAge        int
	// Now stamps CreatedAt. Defaults to time.Now.
	Now func() time.Time
}

func DefaultConfig() Config {
	return Config{
		Workers:       4,
		ReferenceDate: time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC),
		MinAge:        18,
		MaxAge:        200,
	}
}

// GenerationError reports a record that could not be produced.
type GenerationError struct {
	Index int
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate record %d: %v", e.Index, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

type Generator struct {
	cfg   Config
	calls atomic.Uint64

	// newIDSource is a seam for the identifier entropy of a chunk.
	newIDSource func(chunkSeed uint64) io.Reader
}

func New(cfg Config) *Generator {
	def := DefaultConfig()
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.ReferenceDate.IsZero() {
		cfg.ReferenceDate = def.ReferenceDate
	}
	if cfg.MinAge <= 0 {
		cfg.MinAge = def.MinAge
	}
	if cfg.MaxAge < cfg.MinAge {
		cfg.MaxAge = max(def.MaxAge, cfg.MinAge)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	g := &Generator{cfg: cfg}
	g.newIDSource = g.idSource
	return g
}

// idSource returns crypto randomness for unseeded generators and a ChaCha8
// stream keyed by chunkSeed otherwise.
func (g *Generator) idSource(chunkSeed uint64) io.Reader {
	if g.cfg.Seed == 0 {
		return nil
	}
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:8], chunkSeed)
	binary.LittleEndian.PutUint64(key[8:16], g.cfg.Seed)
	return rand.NewChaCha8(key)
}

// Generate returns exactly count new records in a stable order. Successive
// calls on a seeded generator continue the sequence instead of repeating it.
func (g *Generator) Generate(ctx context.Context, count int) ([]models.User, error) {
	if count <= 0 {
		return nil, ErrInvalidCount
	}

	call := g.calls.Add(1) - 1

	out := make([]models.User, count)
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.cfg.Workers)

	chunks := (count + chunkSize - 1) / chunkSize
	for c := 0; c < chunks; c++ {
		start := c * chunkSize
		end := min(start+chunkSize, count)
		chunkSeed := g.cfg.Seed + call<<32 + uint64(c)

		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return g.fill(out[start:end], start, chunkSeed)
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *Generator) fill(dst []models.User, offset int, chunkSeed uint64) error {
	var faker *gofakeit.Faker
	if g.cfg.Seed == 0 {
		faker = gofakeit.New(0)
	} else {
		faker = gofakeit.New(chunkSeed)
	}
	ids := g.newIDSource(chunkSeed)
	now := g.cfg.Now().UTC().Truncate(time.Second)

	for i := range dst {
		id, err := newID(ids)
		if err != nil {
			return &GenerationError{Index: offset + i, Err: err}
		}

		age := faker.IntRange(g.cfg.MinAge, g.cfg.MaxAge)

		dst[i] = models.User{
			ID:          id,
			Name:        clip(faker.Name(), maxNameText),
			Email:       clip(faker.Email(), maxShortText),
			Phone:       clip(faker.Phone(), maxShortText),
			DateOfBirth: g.birthDate(faker, age),
			Age:         strconv.Itoa(age),
			Address:     faker.Street(),
			City:        clip(faker.City(), maxShortText),
			State:       clip(faker.State(), maxShortText),
			Direction:   directions[faker.IntN(len(directions))],
			Country:     clip(faker.Country(), maxShortText),
			PostalCode:  clip(faker.Zip(), maxPostalCode),
			CreatedAt:   now,
		}
	}
	return nil
}

func newID(r io.Reader) (string, error) {
	var (
		id  uuid.UUID
		err error
	)
	if r == nil {
		id, err = uuid.NewRandom()
	} else {
		id, err = uuid.NewRandomFromReader(r)
	}
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// birthDate is age years and 1 to 364 days before the reference date.
func (g *Generator) birthDate(f *gofakeit.Faker, age int) models.Date {
	days := f.IntRange(1, 364)
	return models.DateOf(g.cfg.ReferenceDate.AddDate(-age, 0, -days))
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
