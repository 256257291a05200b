// Package model defines the persisted schema for the OrcSync hub: the
// change event log, the acknowledgement ledger, station identity, and the
// synchronized domain entities themselves.
package model

// Entity is implemented by every synchronized domain model. The sync engine
// only ever sees values through this interface plus the per-type operations
// registered in the entity registry; there is no reflective attribute
// walking at runtime.
type Entity interface {
	// EntityTag returns the registry tag, e.g. "drivers.Driver".
	EntityTag() string
	// EntityPK returns the primary key in wire form (decimal string for
	// integer keys, canonical form for UUID keys).
	EntityPK() string
	// MarkSyncOperation flags the instance as being written by the
	// ingestion pipeline so the capture hook stays quiet.
	MarkSyncOperation()
	// InSyncOperation reports whether the sync-operation flag is set.
	InSyncOperation() bool
}

// SyncState is embedded by every synchronized entity. The flag lives only
// in memory (unexported, so GORM and JSON both skip it) and marks an
// instance currently being applied by the ingestion pipeline, which must
// not re-capture the very change it is applying.
type SyncState struct {
	syncOperation bool
}

// MarkSyncOperation flags the instance as written by the ingestion pipeline.
func (s *SyncState) MarkSyncOperation() { s.syncOperation = true }

// InSyncOperation reports whether the sync-operation flag is set.
func (s *SyncState) InSyncOperation() bool { return s.syncOperation }

// Registry tags for the synchronized entity types. The tag format is
// "<app>.<Model>", matching the model labels exchanged on the wire.
const (
	TagStation       = "stations.Station"
	TagDriver        = "drivers.Driver"
	TagTruckOwner    = "trucks.TruckOwner"
	TagTruck         = "trucks.Truck"
	TagGroup         = "users.Group"
	TagUser          = "users.User"
	TagCommodity     = "customs.Commodity"
	TagPaymentMethod = "customs.PaymentMethod"
	TagDeclaration   = "customs.Declaration"
	TagCheckIn       = "customs.CheckIn"
	TagPath          = "routes.Path"
	TagPathStation   = "routes.PathStation"
)

// All returns one instance of every persisted model in foreign key
// dependency order, for schema migration.
func All() []any {
	return []any{
		&Station{},
		&StationCredential{},
		&ChangeEvent{},
		&Acknowledgement{},
		&Driver{},
		&TruckOwner{},
		&Truck{},
		&Group{},
		&User{},
		&Commodity{},
		&PaymentMethod{},
		&Declaration{},
		&CheckIn{},
		&Path{},
		&PathStation{},
	}
}
