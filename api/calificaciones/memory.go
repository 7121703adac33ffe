package calificaciones

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// MemoryRepository is an in-memory Repository used by tests and local runs
// without a database. It mirrors the postgres behavior, including the
// natural-key uniqueness guard on insert.
type MemoryRepository struct {
	mu          sync.Mutex
	instruments map[int64]*FinancialInstrument
	records     map[int64]*TaxClassificationRecord
	batches     map[string]*IngestionBatch
	nextInstID  int64
	nextRecID   int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		instruments: make(map[int64]*FinancialInstrument),
		records:     make(map[int64]*TaxClassificationRecord),
		batches:     make(map[string]*IngestionBatch),
		nextInstID:  1,
		nextRecID:   1,
	}
}

func (m *MemoryRepository) GetInstrument(_ context.Context, id int64) (*FinancialInstrument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instruments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *inst
	return &cp, nil
}

func (m *MemoryRepository) GetInstrumentByCode(_ context.Context, codigo string) (*FinancialInstrument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inst := range m.instruments {
		if inst.Codigo == codigo && inst.Activo {
			cp := *inst
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryRepository) CreateInstrument(_ context.Context, inst *FinancialInstrument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.instruments {
		if existing.Codigo == inst.Codigo {
			return ErrDuplicate
		}
	}
	inst.ID = m.nextInstID
	m.nextInstID++
	inst.Activo = true
	inst.FechaCreacion = time.Now()
	cp := *inst
	m.instruments[inst.ID] = &cp
	return nil
}

func (m *MemoryRepository) UpdateInstrument(_ context.Context, inst *FinancialInstrument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.instruments[inst.ID]; !ok {
		return ErrNotFound
	}
	cp := *inst
	m.instruments[inst.ID] = &cp
	return nil
}

func (m *MemoryRepository) InstrumentCodeExists(_ context.Context, codigo string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inst := range m.instruments {
		if inst.Codigo == codigo {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryRepository) ListInstruments(_ context.Context, search string) ([]*FinancialInstrument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*FinancialInstrument
	search = strings.ToLower(search)
	for _, inst := range m.instruments {
		if !inst.Activo {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(inst.Codigo), search) &&
			!strings.Contains(strings.ToLower(inst.Nombre), search) {
			continue
		}
		cp := *inst
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Codigo < out[j].Codigo })
	return out, nil
}

func (m *MemoryRepository) CreateRecord(_ context.Context, rec *TaxClassificationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// uniqueness constraint stand-in: same guard the postgres schema enforces
	for _, existing := range m.records {
		if existing.Activo &&
			existing.InstrumentID == rec.InstrumentID &&
			existing.FechaInforme.Equal(rec.FechaInforme) &&
			existing.NumeroDJ == rec.NumeroDJ {
			return ErrDuplicate
		}
	}
	rec.ID = m.nextRecID
	m.nextRecID++
	rec.Activo = true
	now := time.Now()
	rec.FechaCreacion = now
	rec.FechaModificacion = now
	cp := copyRecord(rec)
	m.records[rec.ID] = cp
	return nil
}

func (m *MemoryRepository) GetRecord(_ context.Context, id int64) (*TaxClassificationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRecord(rec), nil
}

func (m *MemoryRepository) UpdateRecord(_ context.Context, rec *TaxClassificationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.ID]; !ok {
		return ErrNotFound
	}
	rec.FechaModificacion = time.Now()
	m.records[rec.ID] = copyRecord(rec)
	return nil
}

func (m *MemoryRepository) DeactivateRecord(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return ErrNotFound
	}
	rec.Activo = false
	rec.FechaModificacion = time.Now()
	return nil
}

func (m *MemoryRepository) ListRecords(_ context.Context, filter RecordFilter) ([]*TaxClassificationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*TaxClassificationRecord
	for _, rec := range m.records {
		if !rec.Activo && !filter.IncludeInactive {
			continue
		}
		if filter.NumeroDJ != "" && rec.NumeroDJ != filter.NumeroDJ {
			continue
		}
		if filter.Codigo != "" && !strings.Contains(strings.ToLower(rec.Codigo), strings.ToLower(filter.Codigo)) {
			continue
		}
		if !filter.FechaDesde.IsZero() && rec.FechaInforme.Before(filter.FechaDesde) {
			continue
		}
		if !filter.FechaHasta.IsZero() && rec.FechaInforme.After(filter.FechaHasta) {
			continue
		}
		out = append(out, copyRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FechaCreacion.After(out[j].FechaCreacion) })
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *MemoryRepository) CountRecords(ctx context.Context, filter RecordFilter) (int, error) {
	filter.Limit = 0
	filter.Offset = 0
	out, err := m.ListRecords(ctx, filter)
	if err != nil {
		return 0, err
	}
	return len(out), nil
}

func (m *MemoryRepository) ActiveRecordExists(_ context.Context, instrumentID int64, fechaInforme time.Time, numeroDJ string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		if rec.Activo &&
			rec.InstrumentID == instrumentID &&
			rec.FechaInforme.Equal(fechaInforme) &&
			rec.NumeroDJ == numeroDJ {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryRepository) CreateBatch(_ context.Context, batch *IngestionBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	batch.FechaCarga = time.Now()
	cp := *batch
	m.batches[batch.ID] = &cp
	return nil
}

func (m *MemoryRepository) FinalizeBatch(_ context.Context, batch *IngestionBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.batches[batch.ID]; !ok {
		return ErrNotFound
	}
	cp := *batch
	m.batches[batch.ID] = &cp
	return nil
}

func (m *MemoryRepository) GetBatch(_ context.Context, id string) (*IngestionBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	batch, ok := m.batches[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *batch
	return &cp, nil
}

func (m *MemoryRepository) PurgeBatchesBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var purged int64
	for id, batch := range m.batches {
		if batch.FechaCarga.Before(cutoff) {
			delete(m.batches, id)
			purged++
		}
	}
	return purged, nil
}

func copyRecord(rec *TaxClassificationRecord) *TaxClassificationRecord {
	cp := *rec
	if rec.Montos != nil {
		cp.Montos = make(map[int]decimal.Decimal, len(rec.Montos))
		for i, v := range rec.Montos {
			cp.Montos[i] = v
		}
	}
	if rec.Factores != nil {
		cp.Factores = make(map[int]decimal.Decimal, len(rec.Factores))
		for i, v := range rec.Factores {
			cp.Factores[i] = v
		}
	}
	return &cp
}
