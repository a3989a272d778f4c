package recorder

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"mercator-hq/warden/pkg/evidence"
)

// Digest computes the SHA-256 of a record's decision fields, hex-encoded.
// ID, RecordedAt and Digest itself are not covered.
func Digest(r *evidence.DecisionRecord) string {
	fields := []string{
		r.InvocationID,
		r.Owner,
		r.Operation,
		r.State,
		r.Policy,
		r.Reason,
		r.CauseKind,
		strings.Join(r.Steps, ","),
		r.Resource,
		strconv.FormatBool(r.Asked),
		r.Answer,
		r.Error,
		strconv.FormatInt(r.StartedAt.UnixNano(), 10),
		strconv.FormatInt(int64(r.Duration), 10),
	}

	h := sha256.New()
	for _, f := range fields {
		// Length prefix keeps ("ab","c") and ("a","bc") apart.
		h.Write([]byte(strconv.Itoa(len(f))))
		h.Write([]byte{':'})
		h.Write([]byte(f))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Verify reports whether the stored digest matches the record's fields.
func Verify(r *evidence.DecisionRecord) bool {
	return r.Digest != "" && r.Digest == Digest(r)
}
