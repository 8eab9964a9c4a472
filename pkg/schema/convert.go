package schema

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/nm-morais/go-por/pkg/errors"
)

var marshalOptions = proto.MarshalOptions{Deterministic: true}

// marshalTimestamp rejects instants outside years 1 to 9999, which Decode
// would refuse.
func marshalTimestamp(t time.Time, path string) ([]byte, error) {
	ts := timestamppb.New(t)
	if err := ts.CheckValid(); err != nil {
		return nil, errors.NewDecodeError(errors.InvalidField, SchemaCodecCaller, path, err.Error())
	}
	return marshalOptions.Marshal(ts)
}

func unmarshalTimestamp(b []byte, path string) (time.Time, error) {
	ts := &timestamppb.Timestamp{}
	if err := proto.Unmarshal(b, ts); err != nil {
		return time.Time{}, errors.NewDecodeError(errors.InvalidField, SchemaCodecCaller, path, err.Error())
	}
	if err := ts.CheckValid(); err != nil {
		return time.Time{}, errors.NewDecodeError(errors.InvalidField, SchemaCodecCaller, path, err.Error())
	}
	return ts.AsTime(), nil
}

// durationToMillis truncates below one millisecond; negative durations are
// clamped to zero since the wire field is unsigned.
func durationToMillis(d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	return uint64(d / time.Millisecond)
}

func millisToDuration(ms uint64, path string) (time.Duration, error) {
	if ms > uint64(math.MaxInt64/int64(time.Millisecond)) {
		return 0, errors.NewDecodeError(errors.InvalidField, SchemaCodecCaller, path, fmt.Sprintf("%d ms overflows a duration", ms))
	}
	return time.Duration(ms) * time.Millisecond, nil
}
