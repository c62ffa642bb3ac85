package main

import (
	"bytes"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	levelds "github.com/ipfs/go-ds-leveldb"
	logging "github.com/ipfs/go-log/v2"
	"github.com/mitchellh/go-homedir"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/Thierry61/safe-client-libs/client"
	"github.com/Thierry61/safe-client-libs/config"
	"github.com/Thierry61/safe-client-libs/simnet"
	"github.com/Thierry61/safe-client-libs/types"
)

var log = logging.Logger("safe-stress")

func main() {
	app := &cli.App{
		Name:  "safe-stress",
		Usage: "A stress test involving putting and getting immutable and mutable data chunks to the network",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: "~/.safe-client/config.toml",
				Usage: "path to config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
			},
		},
		Commands: []*cli.Command{
			runCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Warn(err)
		os.Exit(1)
	}
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "Generate data, pay for and put each item, then get it back and verify",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:    "immutable",
			Aliases: []string{"i"},
			Value:   -1,
			Usage:   "number of immutable chunks to put and get",
		},
		&cli.IntFlag{
			Name:    "mutable",
			Aliases: []string{"m"},
			Value:   -1,
			Usage:   "number of mutable records to put and get",
		},
		&cli.IntFlag{
			Name:  "chunk-size",
			Value: -1,
			Usage: "size of each generated chunk in bytes",
		},
		&cli.Int64Flag{
			Name:  "seed",
			Usage: "seed for a pseudo-random number generator",
		},
		&cli.Uint64Flag{
			Name:  "payout",
			Usage: "simulated balance minted into the test account",
		},
		&cli.StringFlag{
			Name:  "repo",
			Usage: "override the repo directory",
		},
	},
	Action: run,
}

func run(cctx *cli.Context) error {
	ctx := cctx.Context

	path, err := homedir.Expand(cctx.String("config"))
	if err != nil {
		return err
	}
	cfg, err := config.FromFile(path)
	if err != nil {
		return err
	}

	if err := logging.SetLogLevel("*", cctx.String("log-level")); err != nil {
		return err
	}

	immutable := cfg.Stress.Immutable
	if v := cctx.Int("immutable"); v >= 0 {
		immutable = v
	}
	mutable := cfg.Stress.Mutable
	if v := cctx.Int("mutable"); v >= 0 {
		mutable = v
	}
	chunkSize := cfg.Stress.ChunkSize
	if v := cctx.Int("chunk-size"); v > 0 {
		chunkSize = v
	}
	payout := cfg.Stress.Payout
	if cctx.IsSet("payout") {
		payout = cctx.Uint64("payout")
	}

	seed := time.Now().UnixNano()
	if cctx.IsSet("seed") {
		seed = cctx.Int64("seed")
	}
	rng := rand.New(rand.NewSource(seed))
	log.Infof("seed: %d", seed)

	if v := cctx.String("repo"); v != "" {
		cfg.RepoDir = v
	}
	repo, err := cfg.ExpandRepoDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(repo, 0o755); err != nil {
		return err
	}

	ds, err := levelds.NewDatastore(filepath.Join(repo, "transfers"), nil)
	if err != nil {
		return xerrors.Errorf("opening repo datastore: %w", err)
	}
	defer ds.Close() //nolint:errcheck

	net, err := simnet.New()
	if err != nil {
		return err
	}

	keys, err := types.GenerateKeyFromSeed(rng)
	if err != nil {
		return err
	}
	owner, err := keys.Address()
	if err != nil {
		return err
	}

	if err := net.TriggerSimulatedPayout(ctx, owner, types.NewAmount(payout)); err != nil {
		return err
	}

	c, err := client.New(ctx, ds, net, keys)
	if err != nil {
		return err
	}

	spent := types.NewAmount(0)
	unsub := c.OnSpend(func(ev *types.TransferEvent) {
		spent = types.AmountAdd(spent, ev.Proof.Debit.Amount)
	})
	defer unsub()

	log.Infof("account %s starting balance: %s", owner, c.Balance())
	log.Infof("generating %d items (%d immutable of %s, %d mutable)",
		immutable+mutable, immutable, humanize.IBytes(uint64(chunkSize)), mutable)

	for i := 0; i < immutable; i++ {
		data := make([]byte, chunkSize)
		rng.Read(data)

		chCid, receipt, err := c.PutChunk(ctx, data)
		if err != nil {
			return xerrors.Errorf("put chunk #%d: %w", i, err)
		}
		fmt.Printf("Put immutable chunk #%d: %s (debited %s at seq %d)\n", i, chCid, receipt.Debited, receipt.Seq)

		got, err := c.GetChunk(ctx, chCid)
		if err != nil {
			return xerrors.Errorf("get chunk #%d: %w", i, err)
		}
		if !bytes.Equal(got.Data, data) {
			return xerrors.Errorf("retrieved chunk #%d does not match what was stored", i)
		}
		fmt.Printf("Retrieved chunk #%d: %s\n", i, chCid)
	}

	for i := 0; i < mutable; i++ {
		rec := randomRecord(rng, c)

		receipt, err := c.PutRecord(ctx, rec)
		if err != nil {
			return xerrors.Errorf("put record #%d: %w", i, err)
		}
		fmt.Printf("Put mutable record #%d: %x (debited %s at seq %d)\n", i, rec.ID.Name, receipt.Debited, receipt.Seq)

		got, err := c.GetRecord(ctx, rec.ID)
		if err != nil {
			return xerrors.Errorf("get record #%d: %w", i, err)
		}
		if got.Version != rec.Version || len(got.Entries) != len(rec.Entries) {
			return xerrors.Errorf("retrieved record #%d does not match what was stored", i)
		}
		fmt.Printf("Retrieved record #%d: %x\n", i, rec.ID.Name)
	}

	log.Infof("done: spent %s, final balance %s", spent, c.Balance())

	return nil
}

func randomRecord(rng *rand.Rand, c *client.Client) *types.Record {
	var id types.RecordID
	rng.Read(id.Name[:])
	id.Tag = 100000

	rec := types.NewRecord(id, c.Owner())
	rec.Version = 1
	for j := 0; j < 4; j++ {
		v := make([]byte, 64)
		rng.Read(v)
		rec.Entries[fmt.Sprintf("entry-%d", j)] = v
	}
	return rec
}
