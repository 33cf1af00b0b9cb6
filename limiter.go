// Copyright (C) The Tpmheat Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package tpmheat

import "sync"

// limiter runs funcs with at most Max in flight and remembers the
// first reported error.
type limiter struct {
	Max   int
	setup sync.Once
	slots chan struct{}
	wg    sync.WaitGroup
	mtx   sync.Mutex
	err   error
}

func (l *limiter) Go(f func() error) {
	l.setup.Do(func() { l.slots = make(chan struct{}, l.Max) })
	l.slots <- struct{}{}
	l.wg.Add(1)
	go func() {
		defer func() {
			<-l.slots
			l.wg.Done()
		}()
		if err := f(); err != nil {
			l.mtx.Lock()
			if l.err == nil {
				l.err = err
			}
			l.mtx.Unlock()
		}
	}()
}

func (l *limiter) Wait() error {
	l.wg.Wait()
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.err
}
