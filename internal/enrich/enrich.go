package enrich

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/stakewatch/stakewatch/internal/config"
	"github.com/stakewatch/stakewatch/internal/engine"
	"github.com/stakewatch/stakewatch/internal/registry"
)

// Collaborators consumed by the pipeline. Delivery-side rendering and
// labeling live behind these so the pipeline stays testable.
type (
	// NameResolver maps an address to a display name; empty means
	// unknown.
	NameResolver interface {
		ResolveDisplayName(addr common.Address) string
	}

	// ChartRenderer draws a textual bar chart for vote tallies.
	ChartRenderer interface {
		RenderBarChart(values []float64, labels []string) string
	}

	// TemplateRenderer produces localized title/description text for a
	// template key; it fails if the key is undefined.
	TemplateRenderer interface {
		Render(key string, args map[string]string) (string, error)
	}
)

// Field is one extra name/value pair attached to a message.
type Field struct {
	Name  string
	Value string
}

// Message is a display-ready notification. Transient: it exists for
// one poll cycle, until dispatched.
type Message struct {
	Category    config.Category
	Display     string
	Title       string
	Description string
	Fields      []Field
	Score       engine.Score
	TxHash      string
	Key         string
}

// Contracts consulted for secondary read-only calls.
const (
	minipoolManagerContract = "rocketMinipoolManager"
	proposalContract        = "rocketDAOProposal"
	trustedNodeContract     = "rocketDAONodeTrusted"
)

// odaoAddressPriority fixes which argument names a governance event's
// acting member is read from, first hit wins.
var odaoAddressPriority = []string{"nodeAddress", "canceller", "executer", "proposer", "voter"}

// Enricher transforms raw event arguments into display values, issuing
// secondary contract calls as needed.
type Enricher struct {
	reg        *registry.Registry
	names      NameResolver
	charts     ChartRenderer
	templates  TemplateRenderer
	elExplorer string
	clExplorer string
}

// New builds an enricher around a registry and its collaborators.
func New(reg *registry.Registry, names NameResolver, charts ChartRenderer, templates TemplateRenderer, elExplorer, clExplorer string) *Enricher {
	return &Enricher{
		reg:        reg,
		names:      names,
		charts:     charts,
		templates:  templates,
		elExplorer: elExplorer,
		clExplorer: clExplorer,
	}
}

// Enrich converts one scored raw event into a message. Any secondary
// call or templating failure is an error for this message only; the
// caller skips it and continues with the batch.
func (e *Enricher) Enrich(ctx context.Context, sc engine.Scored) (*Message, error) {
	ev := sc.Event
	args := e.convertArgs(ev.Args)
	fields := []Field{}

	switch ev.Category {
	case config.CategoryMinipool:
		f, err := e.minipoolFields(ctx, ev.Args, ev.Contract.Address)
		if err != nil {
			return nil, fmt.Errorf("enrich %s: %w", ev.Display, err)
		}
		fields = append(fields, f...)
	case config.CategoryProposal:
		f, err := e.proposalFields(ctx, ev.Args, args)
		if err != nil {
			return nil, fmt.Errorf("enrich %s: %w", ev.Display, err)
		}
		fields = append(fields, f...)
	case config.CategoryODAO:
		if err := e.resolveMember(ctx, ev.Args, args); err != nil {
			return nil, fmt.Errorf("enrich %s: %w", ev.Display, err)
		}
	}

	args["transactionHash"] = HashValue(e.searchLink(ev.TxHash.Hex(), shortHex(ev.TxHash.Hex())))
	args["blockNumber"] = TextValue(fmt.Sprintf("[%d](https://%s/block/%d)", ev.BlockNumber, e.elExplorer, ev.BlockNumber))

	strArgs := args.Strings()
	title, err := e.templates.Render(ev.Display+".title", strArgs)
	if err != nil {
		return nil, fmt.Errorf("enrich %s: %w", ev.Display, err)
	}
	desc, err := e.templates.Render(ev.Display+".description", strArgs)
	if err != nil {
		return nil, fmt.Errorf("enrich %s: %w", ev.Display, err)
	}

	fields = append(fields, Field{Name: "Transaction Hash", Value: args["transactionHash"].String()})
	if sender, ok := firstAddress(ev.Args, "from", "sender"); ok {
		fields = append(fields, Field{Name: "Sender Address", Value: e.addressLink(sender)})
	}
	fields = append(fields, Field{Name: "Block Number", Value: args["blockNumber"].String()})

	return &Message{
		Category:    ev.Category,
		Display:     ev.Display,
		Title:       title,
		Description: desc,
		Fields:      fields,
		Score:       sc.Score,
		TxHash:      ev.TxHash.Hex(),
		Key:         engine.DeliveryKey(ev),
	}, nil
}

// convertArgs maps raw decoded values onto the closed variant set.
// Keys containing "amount" or "value" hold 10^18 fixed-point integers
// and are scaled to decimals.
func (e *Enricher) convertArgs(raw map[string]any) Args {
	args := Args{}
	for key, val := range raw {
		switch v := val.(type) {
		case *big.Int:
			if isAmountKey(key) {
				args[key] = DecimalValue(ToDecimal(v))
			} else {
				args[key] = IntValue(v)
			}
		case common.Address:
			args[key] = AddressValue(e.addressLink(v))
		case common.Hash:
			args[key] = HashValue(e.searchLink(v.Hex(), shortHex(v.Hex())))
		case [32]byte:
			h := common.Hash(v)
			args[key] = HashValue(e.searchLink(h.Hex(), shortHex(h.Hex())))
		case []byte:
			args[key] = TextValue(hexutil.Encode(v))
		case bool:
			args[key] = TextValue(fmt.Sprintf("%t", v))
			if key == "supported" {
				decision := "against"
				if v {
					decision = "for"
				}
				args["decision"] = TextValue(decision)
			}
		case string:
			if common.IsHexAddress(v) {
				args[key] = AddressValue(e.addressLink(common.HexToAddress(v)))
			} else {
				args[key] = TextValue(v)
			}
		default:
			args[key] = TextValue(fmt.Sprint(v))
		}
	}
	return args
}

// minipoolFields fetches the validator pubkey behind a minipool event
// and links it on the consensus-layer explorer.
func (e *Enricher) minipoolFields(ctx context.Context, raw map[string]any, origin common.Address) ([]Field, error) {
	minipool := origin
	if addr, ok := firstAddress(raw, "minipool"); ok {
		minipool = addr
	}

	res, err := e.reg.CallByName(ctx, minipoolManagerContract, "getMinipoolPubkey", minipool)
	if err != nil {
		return nil, err
	}
	pubkey, ok := res[0].([]byte)
	if !ok || len(pubkey) == 0 {
		return nil, fmt.Errorf("minipool %s: empty pubkey", minipool.Hex())
	}

	hex := hexutil.Encode(pubkey)
	link := fmt.Sprintf("[%s](https://%s/validator/%s)", shortHex(hex), e.clExplorer, hex)
	return []Field{{Name: "Validator", Value: link}}, nil
}

// proposalFields fetches the proposal message and vote tallies and
// renders them as a bar chart.
func (e *Enricher) proposalFields(ctx context.Context, raw map[string]any, args Args) ([]Field, error) {
	id, ok := raw["proposalID"].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("proposal event without proposalID")
	}

	msgRes, err := e.reg.CallByName(ctx, proposalContract, "getMessage", id)
	if err != nil {
		return nil, err
	}
	if text, ok := msgRes[0].(string); ok {
		args["message"] = TextValue(text)
	}

	forRes, err := e.reg.CallByName(ctx, proposalContract, "getVotesFor", id)
	if err != nil {
		return nil, err
	}
	againstRes, err := e.reg.CallByName(ctx, proposalContract, "getVotesAgainst", id)
	if err != nil {
		return nil, err
	}
	votesFor, okFor := forRes[0].(*big.Int)
	votesAgainst, okAgainst := againstRes[0].(*big.Int)
	if !okFor || !okAgainst {
		return nil, fmt.Errorf("proposal %s: malformed vote tallies", id)
	}

	chart := e.charts.RenderBarChart(
		[]float64{ToDecimal(votesFor), ToDecimal(votesAgainst)},
		[]string{"For", "Against"},
	)
	return []Field{{Name: "Votes", Value: "```" + "\n" + chart + "```"}}, nil
}

// resolveMember finds the governance event's acting address and swaps
// in the trusted-node member name; the address link stays as fallback.
func (e *Enricher) resolveMember(ctx context.Context, raw map[string]any, args Args) error {
	addr, key, ok := priorityAddress(raw)
	if !ok {
		return nil
	}
	res, err := e.reg.CallByName(ctx, trustedNodeContract, "getMemberID", addr)
	if err != nil {
		return err
	}
	if name, ok := res[0].(string); ok && name != "" {
		args[key] = TextValue(e.searchLink(addr.Hex(), name))
	}
	return nil
}

func priorityAddress(raw map[string]any) (common.Address, string, bool) {
	for _, key := range odaoAddressPriority {
		if addr, ok := raw[key].(common.Address); ok {
			return addr, key, true
		}
	}
	return common.Address{}, "", false
}

func firstAddress(raw map[string]any, keys ...string) (common.Address, bool) {
	for _, key := range keys {
		if addr, ok := raw[key].(common.Address); ok {
			return addr, true
		}
	}
	return common.Address{}, false
}

// addressLink builds explorer markup for an address, preferring a
// resolved display name over the shortened hex form.
func (e *Enricher) addressLink(addr common.Address) string {
	name := ""
	if e.names != nil {
		name = e.names.ResolveDisplayName(addr)
	}
	if name == "" {
		name = shortHex(addr.Hex())
	}
	return e.searchLink(addr.Hex(), name)
}

func (e *Enricher) searchLink(target, name string) string {
	return fmt.Sprintf("[%s](https://%s/search?q=%s)", name, e.elExplorer, target)
}
