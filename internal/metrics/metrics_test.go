package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordAuth(t *testing.T) {
	before := testutil.ToFloat64(AuthAttempts.WithLabelValues("password", "failure"))
	RecordAuth("password", errors.New("bad password"))
	after := testutil.ToFloat64(AuthAttempts.WithLabelValues("password", "failure"))
	assert.Equal(t, before+1, after)
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(HTTPActiveRequests)
	TrackActiveRequest(true)
	assert.Equal(t, before+1, testutil.ToFloat64(HTTPActiveRequests))
	TrackActiveRequest(false)
	assert.Equal(t, before, testutil.ToFloat64(HTTPActiveRequests))
}

func TestRecordRequest(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/posts/feed", "200"))
	RecordRequest("GET", "/api/posts/feed", 200, 15*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/posts/feed", "200")))
}
