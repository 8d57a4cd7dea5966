package adapter

// Runtime owns zero or more realms, keyed by id. Exactly one of them, fixed
// when the runtime is constructed, is the main realm. Destroying realms is
// the concrete runtime's concern.
type Runtime interface {
	// CreateRealm allocates a realm under id. It fails with
	// KindDuplicateRealm if id is taken.
	CreateRealm(id string) (Realm, error)

	// Realm looks up a realm. Absence is not an error.
	Realm(id string) (Realm, bool)

	// MainRealm returns the main realm. It never fails.
	MainRealm() Realm
}
