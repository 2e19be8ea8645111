package domain

type CacheKind string

const (
	CacheKindPatientHistory    CacheKind = "patient-history"
	CacheKindOrganizationUnits CacheKind = "organization-units"
	CacheKindEntity            CacheKind = "entity"
)

// CacheKey is the typed cache key, namespaced by integration identity. The
// String form is the only serialization boundary, so unrelated cache kinds
// cannot collide on concatenated strings.
type CacheKey struct {
	Integration string
	Kind        CacheKind
	Ref         string
}

func (k CacheKey) String() string {
	return k.Integration + "::" + string(k.Kind) + "::" + k.Ref
}
