package admin

import (
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestAuditFindOptions(t *testing.T) {
	cases := []struct {
		param string
		limit int64
	}{
		{"", auditDefaultLimit},
		{"not-a-number", auditDefaultLimit},
		{"-5", auditDefaultLimit},
		{"0", auditDefaultLimit},
		{"50", 50},
		{"99999", auditMaxLimit},
	}
	for _, c := range cases {
		opts := auditFindOptions(c.param)
		if opts.Limit == nil || *opts.Limit != c.limit {
			t.Fatalf("limit %q: expected %d, got %v", c.param, c.limit, opts.Limit)
		}
		if !reflect.DeepEqual(opts.Sort, bson.M{"at": -1}) {
			t.Fatalf("limit %q: log must be sorted newest first, got %v", c.param, opts.Sort)
		}
	}
}
