package shared

import "fmt"

// UnitLockKey builds the lock key guarding one business unit's ledger.
func UnitLockKey(unit string) string {
	return fmt.Sprintf("ledger:unit:%s:lock", unit)
}

// ResetLockKey guards the administrative reset, which spans every unit.
func ResetLockKey() string {
	return "ledger:reset:lock"
}
