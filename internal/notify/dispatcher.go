package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gammazero/workerpool"

	"olink/go-backend/internal/ussd"
)

const (
	defaultWorkers  = 4
	defaultMaxQueue = 1024
	defaultTimeout  = 15 * time.Second
)

type Options struct {
	Workers  int
	MaxQueue int
	// Timeout bounds one delivery attempt.
	Timeout time.Duration
	// OnDrop is called when a message is discarded because the queue is
	// full.
	OnDrop func()
	Logger *slog.Logger
}

// Dispatcher implements ussd.Notifier on a bounded worker pool. Messages are
// rendered on the caller's goroutine and sent in the background; failures
// are logged and never retried.
type Dispatcher struct {
	sender   Sender
	pool     *workerpool.WorkerPool
	maxQueue int
	timeout  time.Duration
	onDrop   func()
	log      *slog.Logger
	stopped  atomic.Bool
}

var _ ussd.Notifier = (*Dispatcher)(nil)

func NewDispatcher(sender Sender, opts Options) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.MaxQueue <= 0 {
		opts.MaxQueue = defaultMaxQueue
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Dispatcher{
		sender:   sender,
		pool:     workerpool.New(opts.Workers),
		maxQueue: opts.MaxQueue,
		timeout:  opts.Timeout,
		onDrop:   opts.OnDrop,
		log:      opts.Logger,
	}
}

func (d *Dispatcher) SendWalletCreated(phone, address string) {
	d.enqueue("wallet_created", phone, fmt.Sprintf("O-Link: your 0G wallet is ready.\nAddress: %s\nDial *384*77# to use it.", address))
}

func (d *Dispatcher) SendDepositAddress(phone, address string) {
	d.enqueue("deposit_address", phone, fmt.Sprintf("O-Link deposit address (0G Galileo, A0GI):\n%s", address))
}

func (d *Dispatcher) SendTransferConfirmation(phone, amount, txHash, proofID string) {
	d.enqueue("transfer", phone, fmt.Sprintf("O-Link: sent %s A0GI.\nTx: %s\n0G Proof: %s", amount, txHash, proofID))
}

func (d *Dispatcher) SendPaymentLink(phone, paymentURL, fiatAmount, cryptoEstimate string) {
	d.enqueue("payment_link", phone, fmt.Sprintf("O-Link: pay NGN %s to receive ~%s A0GI:\n%s", fiatAmount, cryptoEstimate, paymentURL))
}

func (d *Dispatcher) SendPayoutInitiated(phone, fiatAmount, accountName, reference string) {
	d.enqueue("payout", phone, fmt.Sprintf("O-Link: NGN %s payout to %s is on the way.\nRef: %s", fiatAmount, accountName, reference))
}

func (d *Dispatcher) enqueue(kind, phone, message string) {
	if d.stopped.Load() {
		return
	}
	if d.pool.WaitingQueueSize() >= d.maxQueue {
		d.log.Warn("notification dropped", "kind", kind, "phone", phone)
		if d.onDrop != nil {
			d.onDrop()
		}
		return
	}
	d.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.sender.Send(ctx, phone, message); err != nil {
			d.log.Warn("notification failed", "kind", kind, "phone", phone, "err", err)
		}
	})
}

// Stop waits for queued messages to drain. Later sends are ignored.
func (d *Dispatcher) Stop() {
	if d.stopped.Swap(true) {
		return
	}
	d.pool.StopWait()
}
