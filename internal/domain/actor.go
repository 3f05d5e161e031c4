package domain

type Role string

const (
	RoleAdministrator Role = "Administrator"
	RoleWaiter        Role = "Waiter"
	RoleChef          Role = "Chef"
	RoleBartender     Role = "Bartender"
	RoleCleaner       Role = "Cleaner"
)

func (r Role) Valid() bool {
	_, ok := roleCapabilities[r]
	return ok
}

type Capability uint16

const (
	CapViewAllOrders Capability = 1 << iota
	CapAmendAnyOrder
	CapCloseAnyOrder
	CapManageCatalog
	CapManageStaff
	CapViewReports
	CapKitchenAccess
	CapTakeOrders
	CapManageReservations
)

var capabilityNames = map[Capability]string{
	CapViewAllOrders:      "ViewAllOrders",
	CapAmendAnyOrder:      "AmendAnyOrder",
	CapCloseAnyOrder:      "CloseAnyOrder",
	CapManageCatalog:      "ManageCatalog",
	CapManageStaff:        "ManageStaff",
	CapViewReports:        "ViewReports",
	CapKitchenAccess:      "KitchenAccess",
	CapTakeOrders:         "TakeOrders",
	CapManageReservations: "ManageReservations",
}

// CapabilitySet is a bit set of capabilities resolved once per request.
type CapabilitySet uint16

func (s CapabilitySet) Has(c Capability) bool {
	return uint16(s)&uint16(c) != 0
}

func (s CapabilitySet) Names() []string {
	var out []string
	for c := CapViewAllOrders; c <= CapManageReservations; c <<= 1 {
		if s.Has(c) {
			out = append(out, capabilityNames[c])
		}
	}
	return out
}

func capSet(caps ...Capability) CapabilitySet {
	var s CapabilitySet
	for _, c := range caps {
		s |= CapabilitySet(c)
	}
	return s
}

var roleCapabilities = map[Role]CapabilitySet{
	RoleAdministrator: capSet(
		CapViewAllOrders,
		CapAmendAnyOrder,
		CapCloseAnyOrder,
		CapManageCatalog,
		CapManageStaff,
		CapViewReports,
		CapKitchenAccess,
		CapTakeOrders,
		CapManageReservations,
	),
	RoleWaiter:    capSet(CapTakeOrders, CapManageReservations),
	RoleBartender: capSet(CapTakeOrders),
	RoleChef:      capSet(CapKitchenAccess),
	RoleCleaner:   0,
}

// CapabilitiesFor maps a role label to its capability set. Unknown roles get none.
func CapabilitiesFor(role Role) CapabilitySet {
	return roleCapabilities[role]
}

// Actor is the authenticated staff member on whose behalf a call runs.
type Actor struct {
	StaffID int64         `json:"id"`
	Name    string        `json:"full_name"`
	Role    Role          `json:"position"`
	Caps    CapabilitySet `json:"-"`
}

func NewActor(staffID int64, name string, role Role) Actor {
	return Actor{
		StaffID: staffID,
		Name:    name,
		Role:    role,
		Caps:    CapabilitiesFor(role),
	}
}

func (a Actor) Can(c Capability) bool {
	return a.Caps.Has(c)
}

// Require returns ErrForbidden unless the actor holds c.
func (a Actor) Require(c Capability) error {
	if !a.Can(c) {
		return ErrForbidden
	}
	return nil
}

// CanTouchOrder reports whether the actor owns the order or holds the override capability.
func (a Actor) CanTouchOrder(ownerID int64, override Capability) bool {
	return a.StaffID == ownerID || a.Can(override)
}
