package auth

import "testing"

func TestHashKeyDeterministic(t *testing.T) {
	a := HashKey("secret-key")
	b := HashKey("secret-key")
	if a != b {
		t.Error("expected HashKey to be deterministic for the same input")
	}
	if a == HashKey("other-key") {
		t.Error("expected different keys to hash differently")
	}
}

func TestAllowsWildcard(t *testing.T) {
	if !Allows([]string{PermAll}, "attendance:mark") {
		t.Error("expected * to grant every operation")
	}
	if !Allows([]string{PermAdmin}, "config:set") {
		t.Error("expected admin to grant every operation")
	}
}

func TestAllowsPrefix(t *testing.T) {
	if !Allows([]string{PermAttendanceAll}, "attendance:mark") {
		t.Error("expected attendance:* to grant attendance:mark")
	}
	if Allows([]string{PermAttendanceAll}, "config:set") {
		t.Error("expected attendance:* to not grant config:set")
	}
}

func TestAllowsExactMatch(t *testing.T) {
	if !Allows([]string{"logs:read"}, "logs:read") {
		t.Error("expected an exact permission match to be allowed")
	}
	if Allows([]string{"logs:read"}, "logs:write") {
		t.Error("expected logs:read to not grant logs:write")
	}
}

func TestAllowsEmptyGrantedDenies(t *testing.T) {
	if Allows(nil, "attendance:mark") {
		t.Error("expected no granted permissions to deny every operation")
	}
}
