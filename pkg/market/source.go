package market

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
)

// CandleSource is the external market-data capability. Implementations return
// at most limit candles with Timestamp >= since, ordered ascending.
type CandleSource interface {
	GetCandles(ctx context.Context, symbol string, interval Interval, since int64, limit int) ([]Candle, error)
}

// MemorySource holds candle series in memory, keyed by symbol and interval.
// It backs tests and walker fixtures.
type MemorySource struct {
	mu      sync.RWMutex
	candles map[string][]Candle // key: symbol|interval
}

// NewMemorySource creates an empty in-memory source.
func NewMemorySource() *MemorySource {
	return &MemorySource{candles: make(map[string][]Candle)}
}

func memKey(symbol string, interval Interval) string {
	return symbol + "|" + string(interval)
}

// Add appends candles for (symbol, interval) and keeps the series sorted.
func (m *MemorySource) Add(symbol string, interval Interval, candles ...Candle) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memKey(symbol, interval)
	m.candles[key] = append(m.candles[key], candles...)
	sort.Slice(m.candles[key], func(i, j int) bool {
		return m.candles[key][i].Timestamp < m.candles[key][j].Timestamp
	})
}

// GetCandles implements CandleSource.
func (m *MemorySource) GetCandles(_ context.Context, symbol string, interval Interval, since int64, limit int) ([]Candle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	series := m.candles[memKey(symbol, interval)]
	idx := sort.Search(len(series), func(i int) bool {
		return series[i].Timestamp >= since
	})

	out := make([]Candle, 0, limit)
	for i := idx; i < len(series) && len(out) < limit; i++ {
		out = append(out, series[i])
	}
	return out, nil
}

// CSVSource reads candle series from <dataPath>/<symbol>_<interval>.csv with
// header timestamp,open,high,low,close,volume. Files are loaded once and
// served from memory.
type CSVSource struct {
	dataPath string
	mem      *MemorySource

	mu     sync.Mutex
	loaded map[string]bool
}

// NewCSVSource creates a source rooted at dataPath.
func NewCSVSource(dataPath string) *CSVSource {
	return &CSVSource{
		dataPath: dataPath,
		mem:      NewMemorySource(),
		loaded:   make(map[string]bool),
	}
}

// GetCandles implements CandleSource, loading the backing file on first use.
func (s *CSVSource) GetCandles(ctx context.Context, symbol string, interval Interval, since int64, limit int) ([]Candle, error) {
	if err := s.ensureLoaded(symbol, interval); err != nil {
		return nil, err
	}
	return s.mem.GetCandles(ctx, symbol, interval, since, limit)
}

func (s *CSVSource) ensureLoaded(symbol string, interval Interval) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memKey(symbol, interval)
	if s.loaded[key] {
		return nil
	}

	filePath := filepath.Join(s.dataPath, fmt.Sprintf("%s_%s.csv", symbol, interval))
	candles, err := loadCandlesFromCSV(filePath)
	if err != nil {
		return fmt.Errorf("failed to load candles for %s %s: %w", symbol, interval, err)
	}

	s.mem.Add(symbol, interval, candles...)
	s.loaded[key] = true
	log.Printf("[CSVSource] Loaded %d candles from %s", len(candles), filePath)
	return nil
}

// loadCandlesFromCSV loads a single candle file.
func loadCandlesFromCSV(filePath string) ([]Candle, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// Read header
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, name := range []string{"timestamp", "open", "high", "low", "close", "volume"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	candles := make([]Candle, 0, 10000)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}

		c, err := parseCandleRecord(record, col)
		if err != nil {
			log.Printf("[CSVSource] Skipping bad record in %s: %v", filePath, err)
			continue
		}
		candles = append(candles, c)
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp < candles[j].Timestamp
	})
	return candles, nil
}

func parseCandleRecord(record []string, col map[string]int) (Candle, error) {
	ts, err := strconv.ParseInt(record[col["timestamp"]], 10, 64)
	if err != nil {
		return Candle{}, fmt.Errorf("bad timestamp: %w", err)
	}

	fields := make(map[string]float64, 5)
	for _, name := range []string{"open", "high", "low", "close", "volume"} {
		v, err := strconv.ParseFloat(record[col[name]], 64)
		if err != nil {
			return Candle{}, fmt.Errorf("bad %s: %w", name, err)
		}
		fields[name] = v
	}

	c := Candle{
		Timestamp: ts,
		Open:      fields["open"],
		High:      fields["high"],
		Low:       fields["low"],
		Close:     fields["close"],
		Volume:    fields["volume"],
	}
	if !c.Valid() {
		return Candle{}, fmt.Errorf("invalid candle at %d", ts)
	}
	return c, nil
}
