package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestRecordHelpers moves the underlying collectors
func TestRecordHelpers(t *testing.T) {
	before := testutil.ToFloat64(syncMessages.WithLabelValues("delta"))
	RecordSync("delta")
	if got := testutil.ToFloat64(syncMessages.WithLabelValues("delta")); got != before+1 {
		t.Errorf("delta count = %v, want %v", got, before+1)
	}

	SetRooms(map[string]int{"LOBBY": 2, "IN_PROGRESS": 1})
	if got := testutil.ToFloat64(rooms.WithLabelValues("LOBBY")); got != 2 {
		t.Errorf("lobby rooms = %v", got)
	}
	if got := testutil.ToFloat64(rooms.WithLabelValues("ENDED")); got != 0 {
		t.Errorf("ended rooms = %v", got)
	}

	rej := testutil.ToFloat64(policyRejections.WithLabelValues("ROOM_FULL"))
	RecordRejection("ROOM_FULL")
	if got := testutil.ToFloat64(policyRejections.WithLabelValues("ROOM_FULL")); got != rej+1 {
		t.Errorf("rejections = %v", got)
	}
}

// TestRegisterEventLogOnce tolerates repeated registration
func TestRegisterEventLogOnce(t *testing.T) {
	fn := func() uint64 { return 3 }
	RegisterEventLog(fn, fn)
	RegisterEventLog(fn, fn)
}

// TestMiddlewareObserves wraps a handler without changing its response
func TestMiddlewareObserves(t *testing.T) {
	h := Middleware(func(*http.Request) string { return "/x" })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Millisecond)
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d", rec.Code)
	}
	if n := testutil.CollectAndCount(requestLatency); n == 0 {
		t.Error("expected a latency series")
	}
}
