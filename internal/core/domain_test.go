package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDateKeepsCalendarFields(t *testing.T) {
	// A date-only string must never move to the previous day, whatever the
	// process timezone is.
	for _, zone := range []string{"America/Sao_Paulo", "Pacific/Kiritimati", "UTC"} {
		loc, err := time.LoadLocation(zone)
		if err != nil {
			t.Skipf("tzdata not available: %v", err)
		}
		old := time.Local
		time.Local = loc
		d, err := ParseDate("2024-03-05")
		time.Local = old
		if err != nil {
			t.Fatalf("%s: parse: %v", zone, err)
		}
		if d.Year() != 2024 || d.Month() != 3 || d.Day() != 5 {
			t.Fatalf("%s: got %s", zone, d)
		}
	}
}

func TestDateJSON(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`"2024-01-31"`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.String() != "2024-01-31" {
		t.Fatalf("got %s", d)
	}
	if err := json.Unmarshal([]byte(`"2024-01-31T00:00:00.000Z"`), &d); err != nil || d.Day() != 31 {
		t.Fatalf("timestamp form: d=%s err=%v", d, err)
	}
	out, err := json.Marshal(NewDate(2023, 10, 25))
	if err != nil || string(out) != `"2023-10-25"` {
		t.Fatalf("marshal: %s %v", out, err)
	}
	if err := json.Unmarshal([]byte(`"31/01/2024"`), &d); err == nil {
		t.Fatalf("expected error for non ISO date")
	}
}

func TestTransactionTypeDecoding(t *testing.T) {
	cases := map[string]TransactionType{
		`"INCOME"`:  Income,
		`"EXPENSE"`: Expense,
		`"RECEITA"`: Income,
		`"despesa"`: Expense,
	}
	for in, want := range cases {
		var got TransactionType
		if err := json.Unmarshal([]byte(in), &got); err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if got != want {
			t.Fatalf("%s: got %s want %s", in, got, want)
		}
	}
	var bad TransactionType
	if err := json.Unmarshal([]byte(`"TRANSFER"`), &bad); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		ID:          1,
		Description: "Market",
		Amount:      MoneyFromInt(50),
		Type:        Expense,
		Date:        NewDate(2024, 1, 31),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if !good.Signed().Equal(MoneyFromInt(-50)) {
		t.Fatalf("expense should be negative, got %s", good.Signed())
	}

	bads := []Transaction{
		{Description: "a", Amount: MoneyFromInt(1), Type: Income},                            // zero date
		{Description: " ", Amount: MoneyFromInt(1), Type: Income, Date: NewDate(2024, 1, 1)}, // blank description
		{Description: "a", Amount: Zero, Type: Income, Date: NewDate(2024, 1, 1)},
		{Description: "a", Amount: MoneyFromInt(1), Type: "OTHER", Date: NewDate(2024, 1, 1)},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestUserValidate(t *testing.T) {
	good := User{ID: 7, Name: "Ana", Email: "ana@example.com", Level: 1}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	cases := []struct {
		mutate func(*User)
		want   error
	}{
		{func(u *User) { u.ID = 0 }, ErrInvalidUserID},
		{func(u *User) { u.Email = "" }, ErrEmptyEmail},
		{func(u *User) { u.Level = 0 }, ErrInvalidLevel},
		{func(u *User) { u.ExperiencePoints = -1 }, ErrNegativeExperience},
	}
	for i, tc := range cases {
		u := good
		tc.mutate(&u)
		if err := u.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d: got %v want %v", i, err, tc.want)
		}
	}
}

func TestGoalValidate(t *testing.T) {
	g := Goal{Name: "Trip", TargetAmount: MoneyFromInt(1000), Deadline: NewDate(2025, 6, 1)}
	if err := g.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	g.TargetAmount = Zero
	if err := g.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}
