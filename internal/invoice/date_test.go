package invoice

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2024-03-14 ")
	require.NoError(t, err)
	require.Equal(t, Date{Year: 2024, Month: time.March, Day: 14}, d)
	require.Equal(t, time.Thursday, d.Weekday())

	empty, err := ParseDate("")
	require.NoError(t, err)
	require.True(t, empty.IsZero())

	_, err = ParseDate("14/03/2024")
	require.Error(t, err)
}

func TestDateCompare(t *testing.T) {
	a := MustParseDate("2024-03-14")
	b := MustParseDate("2024-03-20")
	require.True(t, a.Before(b))
	require.True(t, b.After(a))
	require.Equal(t, 0, a.Compare(MustParseDate("2024-03-14")))
	require.True(t, b.Before(Date{}), "absent dates sort last")
	require.Equal(t, "2024-04-01", MustParseDate("2024-03-31").AddDays(1).String())
	require.Equal(t, NewDate(2024, time.March, 1), NewDate(2024, time.February, 30))
	require.Equal(t, "2024-04-01", NewDate(2024, time.March, 32).String())
	require.NotEqual(t, NewDate(2024, time.March, 32), Date{Year: 2024, Month: time.March, Day: 32}, "literals are not normalised")
}

func TestDateJSON(t *testing.T) {
	type payload struct {
		Due   Date         `json:"due"`
		ByDay map[Date]int `json:"by_day"`
	}
	raw, err := json.Marshal(payload{Due: MustParseDate("2024-03-14"), ByDay: map[Date]int{MustParseDate("2024-03-20"): 2, {}: 1}})
	require.NoError(t, err)
	require.JSONEq(t, `{"due":"2024-03-14","by_day":{"2024-03-20":2,"":1}}`, string(raw))

	var back payload
	require.NoError(t, json.Unmarshal(raw, &back))
	require.Equal(t, MustParseDate("2024-03-14"), back.Due)
	require.Equal(t, 1, back.ByDay[Date{}])

	var absent payload
	require.NoError(t, json.Unmarshal([]byte(`{"due":null}`), &absent))
	require.True(t, absent.Due.IsZero())
	zero, err := json.Marshal(Date{})
	require.NoError(t, err)
	require.Equal(t, "null", string(zero))
}

func TestParseStatus(t *testing.T) {
	cases := map[string]PaymentStatus{
		"pending":    StatusPending,
		" Pendente ": StatusPending,
		"programada": StatusPending,
		"atrasada":   StatusOverdue,
		"OVERDUE":    StatusOverdue,
		"pago":       StatusPaid,
		"paga":       StatusPaid,
		"paid":       StatusPaid,
		"":           StatusPending,
		"cancelada":  StatusPending,
	}
	for raw, want := range cases {
		require.Equal(t, want, ParseStatus(raw), raw)
	}
}
