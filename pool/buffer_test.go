/*
 * Copyright (c) 2020 Miguel Ángel Ortuño.
 * See the LICENSE file for more information.
 */

package pool

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vireo-im/vireo/util"
)

const randomBytesLength = 256

func TestBufferPool_GetAndPut(t *testing.T) {
	p := NewBufferPool()

	buf := p.Get()
	require.Equal(t, "*bytes.Buffer", reflect.ValueOf(buf).Type().String())

	buf = p.Get()
	buf.Write(util.RandomBytes(randomBytesLength))
	require.Equal(t, randomBytesLength, buf.Len())
	p.Put(buf)
	buf = p.Get()
	require.Equal(t, 0, buf.Len())
}
