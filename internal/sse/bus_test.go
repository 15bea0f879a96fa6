package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_bus(t *testing.T) {
	xs := make(chan int, 8)
	ys := make(chan int, 8)
	zs := make(chan int, 1)

	b := newBus[int]()
	b.publish(100)
	b.register(xs)
	b.publish(200)
	b.register(ys)
	b.publish(300)
	b.register(zs)
	b.unregister(xs)
	b.unregister(xs) // no-op
	assert.Equal(t, 2, b.count())
	assert.Equal(t, 0, b.publish(400))
	assert.Equal(t, 1, b.publish(450))
	b.clear()
	b.publish(500)
	assert.Equal(t, 0, b.count())

	assert.Equal(t, []int{200, 300}, drain(xs))
	assert.Equal(t, []int{300, 400, 450}, drain(ys))
	assert.Equal(t, []int{400}, drain(zs))
	assert.Equal(t, 1, b.dropped)
}

func drain(ch chan int) []int {
	values := make([]int, 0)
	for {
		select {
		case v := <-ch:
			values = append(values, v)
		default:
			return values
		}
	}
}
