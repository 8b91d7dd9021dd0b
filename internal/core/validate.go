package core

import "fmt"

// ValidateState checks an imported document before it replaces the store:
// required shape, known enum values, unique task ids, and referential
// consistency of transactions and the session pointer against the user map.
func ValidateState(st *State) error {
	if st.Users == nil {
		return fmt.Errorf("%w: users map is missing", ErrValidation)
	}
	for id, u := range st.Users {
		if u == nil {
			return fmt.Errorf("%w: user %q is null", ErrValidation, id)
		}
		if u.ID != id {
			return fmt.Errorf("%w: user key %q does not match id %q", ErrValidation, id, u.ID)
		}
		if u.Role != RoleUser && u.Role != RoleAdmin {
			return fmt.Errorf("%w: user %q has unknown role %q", ErrValidation, id, u.Role)
		}
		if !ValidUserStatus(u.Status) {
			return fmt.Errorf("%w: user %q has unknown status %q", ErrValidation, id, u.Status)
		}
	}

	seen := make(map[string]bool, len(st.Tasks))
	for _, t := range st.Tasks {
		if t == nil {
			return fmt.Errorf("%w: null task in catalog", ErrValidation)
		}
		if t.ID == "" {
			return fmt.Errorf("%w: task with empty id", ErrValidation)
		}
		if seen[t.ID] {
			return fmt.Errorf("%w: duplicate task id %q", ErrValidation, t.ID)
		}
		seen[t.ID] = true
		if !ValidCategory(t.Category) {
			return fmt.Errorf("%w: task %q has unknown category %q", ErrValidation, t.ID, t.Category)
		}
	}

	for _, tx := range st.Transactions {
		if tx == nil {
			return fmt.Errorf("%w: null transaction in ledger", ErrValidation)
		}
		if tx.ID == "" {
			return fmt.Errorf("%w: transaction with empty id", ErrValidation)
		}
		if !ValidTransactionType(tx.Type) {
			return fmt.Errorf("%w: transaction %q has unknown type %q", ErrValidation, tx.ID, tx.Type)
		}
		if !ValidTransactionStatus(tx.Status) {
			return fmt.Errorf("%w: transaction %q has unknown status %q", ErrValidation, tx.ID, tx.Status)
		}
		if _, ok := st.Users[tx.UserID]; !ok {
			return fmt.Errorf("%w: transaction %q references unknown user %q", ErrValidation, tx.ID, tx.UserID)
		}
	}

	if st.CurrentUser != nil {
		if _, ok := st.Users[*st.CurrentUser]; !ok {
			return fmt.Errorf("%w: session points at unknown user %q", ErrValidation, *st.CurrentUser)
		}
	}

	if c := st.Settings.GlobalCommission; c < 0 || c > 100 {
		return fmt.Errorf("%w: commission %v outside 0-100", ErrValidation, c)
	}
	return nil
}
