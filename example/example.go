// Command example shows the consumer side of a generated callback stream.
// A goroutine stands in for the library's callback thread; real bindings
// push from the trampolines instead.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/WhisperCapital/go-yd/bridge"
)

type event interface {
	EventType() string
}

type loginEvent struct {
	ErrorNo     int32
	MaxOrderRef int32
}

func (loginEvent) EventType() string { return "NotifyLogin" }

type marketDataEvent struct {
	InstrumentRef int32
	LastPrice     float64
}

func (marketDataEvent) EventType() string { return "NotifyMarketData" }

type finishInitEvent struct{}

func (finishInitEvent) EventType() string { return "NotifyFinishInit" }

func main() {
	queue := bridge.NewQueue[event](bridge.WithCapacity(1024), bridge.WithOverflow(bridge.DropOldest))

	go func() {
		queue.Push(loginEvent{ErrorNo: 0, MaxOrderRef: 100})
		queue.Push(finishInitEvent{})
		for i := 0; i < 5; i++ {
			queue.Push(marketDataEvent{InstrumentRef: 7, LastPrice: 3000 + float64(i)})
			time.Sleep(10 * time.Millisecond)
		}
		queue.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for ev := range queue.All(ctx) {
		switch e := ev.(type) {
		case loginEvent:
			if e.ErrorNo != 0 {
				fmt.Printf("login failed: %d\n", e.ErrorNo)
				return
			}
			fmt.Printf("logged in, next order ref %d\n", e.MaxOrderRef+1)
		case marketDataEvent:
			fmt.Printf("instrument %d last %.2f\n", e.InstrumentRef, e.LastPrice)
		default:
			fmt.Println(e.EventType())
		}
	}
	fmt.Printf("done, %d events dropped\n", queue.Dropped())
}
