package main

import (
	"context"
	"fmt"
	"time"

	"github.com/phroun/hxrt"
)

// stopMessage asks a demo worker to exit
const stopMessage = "stop"

// ping is what the ticker thread sends; workers answer to from
type ping struct {
	from hxrt.ThreadID
	n    int
}

var demoWorkers []hxrt.ThreadID

// startDemo spawns worker threads that echo pings back, a ticker thread
// whose event loop pings them every second, and one thread that raises and
// recovers an exception so every metric moves. The ticker exits once done
// is closed.
func startDemo(done <-chan struct{}, rt *hxrt.Runtime, workers int) {
	shared := hxrt.NewSequence[string]()

	for i := 0; i < workers; i++ {
		id := rt.Spawn(func(ctx context.Context) {
			for {
				msg, ok := rt.Receive(ctx, true)
				if !ok {
					return
				}
				if s, _ := hxrt.As[string](msg); s == stopMessage {
					return
				}
				p, ok := hxrt.As[ping](msg)
				if !ok {
					continue
				}
				shared.Push(fmt.Sprintf("%d:ping %d", rt.ThreadID(ctx), p.n))
				hxrt.Try(ctx, func() {
					rt.Send(ctx, p.from, rt.ThreadID(ctx))
				})
			}
		})
		demoWorkers = append(demoWorkers, id)
	}

	rt.Spawn(func(ctx context.Context) {
		res := hxrt.Try(ctx, func() {
			hxrt.Throw(ctx, hxrt.NewDomainError("demo failure"))
		})
		rt.Logger().NoticeCat(hxrt.CatException, "demo exception recovered: %s", res.Err())
	})

	rt.Spawn(func(ctx context.Context) {
		self := rt.ThreadID(ctx)
		loop := hxrt.Current(ctx).EventLoop()
		tick := 0
		loop.Repeat(func() {
			tick++
			for _, id := range demoWorkers {
				hxrt.Try(ctx, func() {
					rt.Send(ctx, id, ping{from: self, n: tick})
				})
			}
			for {
				if _, ok := rt.Receive(ctx, false); !ok {
					break
				}
			}
			if shared.Len() > 1000 {
				shared.Splice(0, shared.Len()-100)
			}
		}, time.Second)

		for {
			select {
			case <-done:
				return
			default:
			}
			loop.Progress()
			loop.WaitTimeout(100 * time.Millisecond)
		}
	})
}

func stopDemo(rt *hxrt.Runtime) {
	ctx := rt.MainContext()
	for _, id := range demoWorkers {
		hxrt.Try(ctx, func() {
			rt.Send(ctx, id, stopMessage)
		})
	}
}
