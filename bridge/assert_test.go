package bridge_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WhisperCapital/go-yd/bridge"
)

func TestMustNotNil(t *testing.T) {
	v := 1
	assert.NotPanics(t, func() {
		bridge.MustNotNil(unsafe.Pointer(&v), "YDListener::notifyOrder", "pOrder")
	})

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(*bridge.NilPointerError)
		require.True(t, ok, "panic value is %T", r)
		assert.Equal(t, "YDListener::notifyOrder", err.Method)
		assert.Equal(t, "pOrder", err.Argument)
		assert.Contains(t, err.Error(), "null pOrder")
	}()
	bridge.MustNotNil(nil, "YDListener::notifyOrder", "pOrder")
}

func TestCopy(t *testing.T) {
	type order struct{ Ref int }

	src := &order{Ref: 7}
	cp := bridge.Copy(src)
	src.Ref = 8
	assert.Equal(t, 7, cp.Ref, "copy is detached from the source")

	assert.Equal(t, order{}, bridge.Copy[order](nil))
}
