/*
Package coordinator owns every replica and the staged transaction, and
turns client commands into ledger operations.

All mutations of the replica store and the staging slot happen under
Node.lock. Proof of work for a commit runs after the lock is released;
the mined blocks are appended once the lock is taken again.
*/
package coordinator

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gitzhang10/auditchain/audit"
	"github.com/gitzhang10/auditchain/chain"
	"github.com/gitzhang10/auditchain/config"
	"github.com/gitzhang10/auditchain/conn"
	"github.com/gitzhang10/auditchain/replica"
	"github.com/hashicorp/go-hclog"
)

// nonceRange bounds the random starting nonce of a mined block to [1, nonceRange].
const nonceRange = 1001

type Node struct {
	name    string
	lock    sync.RWMutex // guards store and staging
	store   *replica.Store
	staging staging
	logger  hclog.Logger

	participants map[string]string // map from name to password, empty means open login
	snapshotPath string

	usersLock sync.Mutex
	users     map[string]peer   // map from online participant to its session
	sessions  map[uint64]string // map from session id to participant
	queues    map[uint64]*commandQueue

	randLock sync.Mutex
	rand     *rand.Rand

	listenAddr string
	maxPool    int
	timeout    time.Duration
	trans      *conn.NetworkTransport
	shutdownCh chan struct{}
	closeOnce  sync.Once
}

func NewNode(conf *config.Config) *Node {
	var n Node
	n.name = conf.Name
	n.store = replica.NewStore(conf.Difficulty)
	n.logger = hclog.New(&hclog.LoggerOptions{
		Name:   "auditchain-node",
		Output: hclog.DefaultOutput,
		Level:  hclog.Level(conf.LogLevel),
	})

	n.participants = conf.Participants
	if n.participants == nil {
		n.participants = make(map[string]string)
	}
	n.snapshotPath = conf.SnapshotPath

	n.users = make(map[string]peer)
	n.sessions = make(map[uint64]string)
	n.queues = make(map[uint64]*commandQueue)
	n.rand = rand.New(rand.NewSource(time.Now().UnixNano()))

	n.listenAddr = conf.ListenAddr
	n.maxPool = conf.MaxPool
	n.timeout = conf.Timeout
	n.shutdownCh = make(chan struct{})
	return &n
}

func (n *Node) randomNonce() uint64 {
	n.randLock.Lock()
	defer n.randLock.Unlock()
	return uint64(n.rand.Intn(nonceRange) + 1)
}

// Join makes sure the participant has a replica.
func (n *Node) Join(participant string) {
	n.lock.Lock()
	defer n.lock.Unlock()
	if n.store.Ensure(participant) {
		n.logger.Info("created replica", "participant", participant)
		n.saveSnapshotLocked()
	}
}

// Leave keeps the participant's replica for later reconciliation.
func (n *Node) Leave(participant string) {
	n.logger.Info("participant left", "participant", participant)
}

// Propose stages a transaction from participant to to, replacing any
// pending proposal, and notifies the counterparty.
func (n *Node) Propose(participant, blockType, to string, amount float64) (Result, error) {
	t, err := chain.ParseBlockType(blockType)
	if err != nil {
		return Result{}, err
	}
	if to == "" {
		return Result{}, fmt.Errorf("%w: empty account", ErrMalformedCommand)
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Result{}, fmt.Errorf("%w: amount must be finite", ErrMalformedCommand)
	}
	p := Proposal{Type: t, From: participant, To: to, Amount: amount}

	n.lock.Lock()
	replaced := n.staging.set(p)
	n.lock.Unlock()
	if replaced {
		n.logger.Debug("pending proposal overwritten", "participant", participant)
	}
	n.logger.Info("staged proposal", "participant", participant, "type", t, "to", to, "amount", amount)

	return Result{
		OK:   true,
		Text: "[!!] Waiting for approval from the other party",
		Notices: []Notice{{
			To:   to,
			Text: "Please verify the transaction!\n" + p.String(),
		}},
	}, nil
}

// Staged returns the pending proposal, if any.
func (n *Node) Staged() (Proposal, bool) {
	n.lock.RLock()
	defer n.lock.RUnlock()
	return n.staging.peek()
}

// Approve commits the staged proposal to every replica. Any participant may approve.
func (n *Node) Approve(participant string) (Result, error) {
	n.lock.Lock()
	p, ok := n.staging.take()
	if !ok {
		n.lock.Unlock()
		return Result{}, ErrNothingStaged
	}
	pending := n.templatesLocked(func(nonce uint64, ts time.Time) *chain.Block {
		return chain.NewBlock(p.Type, nonce, ts, p.Amount, p.From, p.To)
	})
	n.lock.Unlock()

	committed := n.mineAndCommit(pending)
	n.logger.Info("committed proposal", "approver", participant, "type", p.Type, "replicas", committed)

	text := fmt.Sprintf("[*] Added new block for transaction to %d replicas\n%s", committed, p)
	return Result{
		OK:      true,
		Text:    text,
		Notices: []Notice{{To: Broadcast, Text: fmt.Sprintf("[*] %s approved the transaction\n%s", participant, p)}},
	}, nil
}

// View renders the participant's replica.
func (n *Node) View(participant string) (string, error) {
	n.lock.RLock()
	defer n.lock.RUnlock()
	c, ok := n.store.Get(participant)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownParticipant, participant)
	}
	return "[*] Retrieving blockchain\n" + c.Render(), nil
}

// Verify recomputes every hash and link of the participant's replica.
// A tampered chain is reported through the flag, not as an error.
func (n *Node) Verify(participant string) (string, bool, error) {
	n.lock.RLock()
	defer n.lock.RUnlock()
	c, ok := n.store.Get(participant)
	if !ok {
		return "", false, fmt.Errorf("%w: %s", ErrUnknownParticipant, participant)
	}
	msg, valid := c.Validate()
	return "[*] Verifying blockchain hash\n" + msg, valid, nil
}

// Report lists incoming and outgoing totals per account of the participant's replica.
func (n *Node) Report(participant string) (string, error) {
	res, err := n.report(participant)
	return res.Text, err
}

// report returns the totals both as text and as rows.
func (n *Node) report(participant string) (Result, error) {
	n.lock.RLock()
	defer n.lock.RUnlock()
	c, ok := n.store.Get(participant)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownParticipant, participant)
	}
	return Result{
		OK:     true,
		Text:   "[*] Listing all transactions on blockchain\n" + c.Report(),
		Totals: c.TotalsByAccount(),
	}, nil
}

// Reconcile overwrites every replica with a copy of the longest one.
func (n *Node) Reconcile() Result {
	n.lock.Lock()
	defer n.lock.Unlock()
	winner := replica.Reconcile(n.store)
	if winner == "" {
		return Result{OK: true, Text: "[*] No replicas to update"}
	}
	c, _ := n.store.Get(winner)
	n.logger.Info("reconciled replicas", "source", winner, "length", c.Len(), "replicas", n.store.Len())
	n.saveSnapshotLocked()
	return Result{
		OK:   true,
		Text: fmt.Sprintf("[*] The entire blockchain has been updated from %s (%d blocks)", winner, c.Len()),
	}
}

// Adjust computes the tax adjustment for the last two blocks of the
// participant's replica and, when one is due, commits it to every replica.
func (n *Node) Adjust(participant string) (Result, error) {
	n.lock.Lock()
	c, ok := n.store.Get(participant)
	if !ok {
		n.lock.Unlock()
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownParticipant, participant)
	}
	a, err := audit.ComputeAdjustment(c)
	if err != nil {
		n.lock.Unlock()
		return Result{}, err
	}
	if !a.Required {
		n.lock.Unlock()
		return Result{
			OK: true,
			Text: fmt.Sprintf("[*] No adjustment required (profit %s, threshold %s)",
				chain.FormatAmount(a.Profit), chain.FormatAmount(a.Threshold)),
		}, nil
	}
	pending := n.templatesLocked(a.Block)
	n.lock.Unlock()

	committed := n.mineAndCommit(pending)
	n.logger.Info("committed adjustment", "participant", participant, "amount", a.Amount, "replicas", committed)

	text := fmt.Sprintf("[*] Adjustment of %s sent from %s to %s on %d replicas",
		chain.FormatAmount(a.Amount), audit.FromAccount, audit.ToAccount, committed)
	return Result{
		OK:      true,
		Text:    text,
		Notices: []Notice{{To: Broadcast, Text: fmt.Sprintf("[*] %s triggered a tax adjustment\n%s", participant, text)}},
	}, nil
}

// Online returns the logged in participants in lexicographic order.
func (n *Node) Online() []string {
	n.usersLock.Lock()
	defer n.usersLock.Unlock()
	names := make([]string, 0, len(n.users))
	for name := range n.users {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Replicas returns deep copies of every replica.
func (n *Node) Replicas() map[string]*chain.Chain {
	n.lock.RLock()
	defer n.lock.RUnlock()
	return n.store.Snapshot()
}

func (n *Node) list() Result {
	online := n.Online()
	return Result{OK: true, Text: "[*] Listing online users\n" + strings.Join(online, "\n")}
}

// pendingBlock is a block linked to a replica's tip but not yet mined.
type pendingBlock struct {
	block      *chain.Block
	difficulty int
}

// templatesLocked builds one block per replica, linked to that replica's tip.
// Every block starts from its own random nonce. n.lock must be held.
func (n *Node) templatesLocked(newBlock func(nonce uint64, ts time.Time) *chain.Block) map[string]*pendingBlock {
	ts := time.Now()
	out := make(map[string]*pendingBlock, n.store.Len())
	n.store.ForEach(func(name string, c *chain.Chain) {
		b := newBlock(n.randomNonce(), ts)
		b.PrevHash = c.Tip().Hash
		out[name] = &pendingBlock{block: b, difficulty: c.Difficulty()}
	})
	return out
}

// mineAndCommit mines every pending block without holding n.lock, then
// appends them. A replica that moved in the meantime gets its block mined
// again under the lock. It returns the number of replicas that got a block.
func (n *Node) mineAndCommit(pending map[string]*pendingBlock) int {
	var wg sync.WaitGroup
	for _, pb := range pending {
		wg.Add(1)
		go func(pb *pendingBlock) {
			defer wg.Done()
			pb.block.Mine(pb.difficulty)
		}(pb)
	}
	wg.Wait()

	n.lock.Lock()
	defer n.lock.Unlock()
	committed := 0
	for _, name := range n.store.Names() {
		pb, ok := pending[name]
		if !ok {
			continue
		}
		c, _ := n.store.Get(name)
		if err := c.Append(pb.block); err != nil {
			if !errors.Is(err, chain.ErrStaleTip) && !errors.Is(err, chain.ErrUnmined) {
				n.logger.Error("failed to append block", "participant", name, "error", err)
				continue
			}
			n.logger.Debug("replica changed while mining, mining again", "participant", name, "error", err)
			c.AppendMined(pb.block)
		}
		committed++
	}
	n.saveSnapshotLocked()
	return committed
}
