package table

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/bufilter/internal/cache"
	"github.com/ppiankov/bufilter/internal/logging"
	"github.com/ppiankov/bufilter/internal/model"
)

// MasterLoader reads every master file in a directory. Each file is one
// business unit named after the file stem. It logs through the logger
// carried by the context passed to Load.
type MasterLoader struct {
	Columns model.MasterColumns
	Cache   *cache.TableCache
	Workers int
}

// NewMasterLoader creates a loader with caching disabled
func NewMasterLoader(cols model.MasterColumns) *MasterLoader {
	return &MasterLoader{
		Columns: cols,
		Cache:   cache.NewTableCache(nil),
		Workers: 4,
	}
}

// MasterFiles lists the readable master files in dir, sorted by name
func MasterFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, model.NewConfigurationError("master.dir", "cannot read master directory "+dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), "~$") || !Supported(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Load reads all master files in dir. Files missing a required column are
// skipped with a warning. Tables come back in file-name order so index
// precedence is stable between runs.
func (l *MasterLoader) Load(ctx context.Context, dir string) ([]model.MasterTable, error) {
	files, err := MasterFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no .csv or .xlsx files in %s", model.ErrNoMasterData, dir)
	}

	logger := logging.FromContext(ctx)
	loaded := make([]*model.MasterTable, len(files))

	g, ctx := errgroup.WithContext(ctx)
	if l.Workers > 0 {
		g.SetLimit(l.Workers)
	}
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			tbl, err := l.loadFile(path, logger)
			if err != nil {
				var skip *skipError
				if errors.As(err, &skip) {
					logger.Warn().Str("file", filepath.Base(path)).Msg(skip.reason)
					return nil
				}
				return fmt.Errorf("load %s: %w", filepath.Base(path), err)
			}
			loaded[i] = tbl
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var tables []model.MasterTable
	for _, tbl := range loaded {
		if tbl != nil {
			tables = append(tables, *tbl)
		}
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: every file in %s was skipped", model.ErrNoMasterData, dir)
	}
	return tables, nil
}

type skipError struct {
	reason string
}

func (e *skipError) Error() string { return e.reason }

func (l *MasterLoader) loadFile(path string, logger zerolog.Logger) (*model.MasterTable, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	key := cache.Key(append([]string{
		path,
		strconv.FormatInt(info.Size(), 10),
		strconv.FormatInt(info.ModTime().UnixNano(), 10),
	}, l.Columns.Headers()...)...)

	if tbl, ok := l.Cache.Get(key); ok {
		logger.Debug().Str("file", filepath.Base(path)).Int("rows", len(tbl.Rows)).Msg("master table from cache")
		return tbl, nil
	}

	t, err := ReadFile(path, "")
	if errors.Is(err, ErrNoHeader) {
		return nil, &skipError{reason: "skipping empty master file"}
	}
	if err != nil {
		return nil, err
	}

	if missing := t.Missing(l.Columns.Headers()); len(missing) > 0 {
		return nil, &skipError{reason: "skipping master file, missing columns: " + strings.Join(missing, ", ")}
	}

	tbl := toMaster(t, l.Columns)
	tbl.Group = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	tbl.Source = filepath.Base(path)

	if err := l.Cache.Put(key, tbl); err != nil {
		logger.Debug().Err(err).Str("file", tbl.Source).Msg("cache write failed")
	}
	logger.Debug().Str("file", tbl.Source).Int("rows", len(tbl.Rows)).Msg("master table loaded")
	return tbl, nil
}

func toMaster(t *Table, cols model.MasterColumns) *model.MasterTable {
	email := t.Column(cols.Email)
	name := t.Column(cols.Name)
	position := t.Column(cols.Position)
	company := t.Column(cols.Company)

	tbl := &model.MasterTable{Rows: make([]model.MasterRow, 0, len(t.Rows))}
	for r := range t.Rows {
		tbl.Rows = append(tbl.Rows, model.MasterRow{
			Email:    t.Cell(r, email),
			Name:     t.Cell(r, name),
			Position: t.Cell(r, position),
			Company:  t.Cell(r, company),
		})
	}
	return tbl
}
