package broker

import (
	"fmt"
	"testing"
)

func BenchmarkBroadcast(b *testing.B) {
	for _, size := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("conns=%d", size), func(b *testing.B) {
			r := newTestRegistry(Options{MaxConnectionsPerUser: size})
			for i := 0; i < size; i++ {
				if _, err := r.Add(fmt.Sprintf("c%d", i), &fakeTransport{}, "", ""); err != nil {
					b.Fatal(err)
				}
			}
			frame := textFrame("payload")

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if n := r.Broadcast(frame); n != size {
					b.Fatalf("delivered %d, want %d", n, size)
				}
			}
		})
	}
}

func BenchmarkSendToUser(b *testing.B) {
	r := newTestRegistry(Options{MaxConnectionsPerUser: 16})
	for i := 0; i < 8; i++ {
		if _, err := r.Add(fmt.Sprintf("c%d", i), &fakeTransport{}, "u1", ""); err != nil {
			b.Fatal(err)
		}
	}
	frame := textFrame("payload")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.SendToUser("u1", frame)
	}
}

func BenchmarkAddRemove(b *testing.B) {
	r := newTestRegistry(Options{})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id := fmt.Sprintf("c%d", i)
		if _, err := r.Add(id, &fakeTransport{}, "u1", "ch"); err != nil {
			b.Fatal(err)
		}
		r.Remove(id)
	}
}
