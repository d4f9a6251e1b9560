package store

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process Store. It enforces the same unique keys and
// foreign keys the target schema does, which is enough to exercise the
// migration without a database.
type Memory struct {
	mu     sync.Mutex
	nextID int32

	countries   map[string]int32
	clients     map[int32]CreateClientParams
	clientByCrm map[string]int32
	devis       map[int32]CreateDevisRefParams
	devisByCrm  map[string]int32

	// other holds row counts for tables the migration only ever wipes.
	other map[string]int64

	// FailClient and FailDevis inject errors into create calls. A nil
	// return lets the create proceed.
	FailClient func(CreateClientParams) error
	FailDevis  func(CreateDevisRefParams) error

	// Call counters, for assertions.
	ClientCreates int
	DevisCreates  int
	Deletes       []string
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		countries:   make(map[string]int32),
		clients:     make(map[int32]CreateClientParams),
		clientByCrm: make(map[string]int32),
		devis:       make(map[int32]CreateDevisRefParams),
		devisByCrm:  make(map[string]int32),
		other:       make(map[string]int64),
	}
}

func (m *Memory) id() int32 {
	m.nextID++
	return m.nextID
}

// AddCountry inserts a reference country and returns its id.
func (m *Memory) AddCountry(code string) int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.id()
	m.countries[code] = id
	return id
}

// Seed sets the row count of a table that is only wiped, never written.
func (m *Memory) Seed(table string, rows int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.other[table] = rows
}

// Client returns the stored client with the given legacy id.
func (m *Memory) Client(crmID string) (CreateClientParams, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.clientByCrm[crmID]
	if !ok {
		return CreateClientParams{}, false
	}
	return m.clients[id], true
}

// DevisRef returns the stored quote with the given legacy id.
func (m *Memory) DevisRef(crmID string) (CreateDevisRefParams, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.devisByCrm[crmID]
	if !ok {
		return CreateDevisRefParams{}, false
	}
	return m.devis[id], true
}

func (m *Memory) CountryID(_ context.Context, code string) (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.countries[code]
	if !ok {
		return 0, fmt.Errorf("country %s: %w", code, ErrNotFound)
	}
	return id, nil
}

func (m *Memory) rowCount(table string) int64 {
	switch table {
	case TableClients:
		return int64(len(m.clients))
	case TableDevisRefs:
		return int64(len(m.devis))
	default:
		return m.other[table]
	}
}

func (m *Memory) DeleteAll(_ context.Context, table string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !knownTable(table) {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	m.Deletes = append(m.Deletes, table)

	for child, parent := range parentOf {
		if parent == table && m.rowCount(child) > 0 {
			return 0, fmt.Errorf("delete %s: rows in %s still reference it", table, child)
		}
	}

	n := m.rowCount(table)
	switch table {
	case TableClients:
		m.clients = make(map[int32]CreateClientParams)
		m.clientByCrm = make(map[string]int32)
	case TableDevisRefs:
		m.devis = make(map[int32]CreateDevisRefParams)
		m.devisByCrm = make(map[string]int32)
	default:
		delete(m.other, table)
	}
	return n, nil
}

func (m *Memory) CreateClient(_ context.Context, arg CreateClientParams) (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClientCreates++

	if m.FailClient != nil {
		if err := m.FailClient(arg); err != nil {
			return 0, err
		}
	}
	if _, dup := m.clientByCrm[arg.IDClientCrm]; dup && arg.IDClientCrm != "" {
		return 0, fmt.Errorf("%w on clients_id_client_crm_key", ErrConflict)
	}

	id := m.id()
	m.clients[id] = arg
	if arg.IDClientCrm != "" {
		m.clientByCrm[arg.IDClientCrm] = id
	}
	return id, nil
}

func (m *Memory) CreateDevisRef(_ context.Context, arg CreateDevisRefParams) (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DevisCreates++

	if m.FailDevis != nil {
		if err := m.FailDevis(arg); err != nil {
			return 0, err
		}
	}
	if _, ok := m.clients[arg.ClientID]; !ok {
		return 0, fmt.Errorf("foreign key devis_refs_client_id_fkey: client %d does not exist", arg.ClientID)
	}
	if _, dup := m.devisByCrm[arg.IDDevisCrm]; dup {
		return 0, fmt.Errorf("%w on devis_refs_id_devis_crm_key", ErrConflict)
	}

	id := m.id()
	m.devis[id] = arg
	m.devisByCrm[arg.IDDevisCrm] = id
	return id, nil
}

func (m *Memory) ClientExternalRefs(_ context.Context) ([]ExternalRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	refs := make([]ExternalRef, 0, len(m.clientByCrm))
	for crmID, id := range m.clientByCrm {
		refs = append(refs, ExternalRef{IDClientCrm: crmID, ID: id})
	}
	return refs, nil
}

func (m *Memory) Counts(_ context.Context) (Counts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	withID := int64(len(m.clientByCrm))
	return Counts{
		Clients:             int64(len(m.clients)),
		ClientsWithCrmID:    withID,
		ClientsWithoutCrmID: int64(len(m.clients)) - withID,
		DevisRefs:           int64(len(m.devis)),
	}, nil
}

var _ Store = (*Memory)(nil)
