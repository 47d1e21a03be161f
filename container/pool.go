package container

import (
	"bytes"
	"sync"
)

const (
	poolInitCap = 64 << 10
	poolMaxCap  = 8 << 20
)

var bufPool = sync.Pool{
	New: func() any {
		return bytes.NewBuffer(make([]byte, 0, poolInitCap))
	},
}

func getBuf() *bytes.Buffer {
	return bufPool.Get().(*bytes.Buffer)
}

func putBuf(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > poolMaxCap {
		return
	}
	buf.Reset()
	bufPool.Put(buf)
}
