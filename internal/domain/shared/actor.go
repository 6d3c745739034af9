package shared

// Actor identifies who performs an operation. Authorization happens before the
// core is invoked; Role is only recorded.
type Actor struct {
	Name  string
	Email string
	Role  string
}

// DisplayName returns the name used on audit rows.
func (a Actor) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	if a.Email != "" {
		return a.Email
	}
	return "system"
}
