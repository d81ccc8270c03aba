package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrNotFound is returned by ByAddress for addresses never loaded.
	ErrNotFound = errors.New("contract not loaded")
	// ErrNoAddress is returned when the lookup contract has no entry
	// for a logical name.
	ErrNoAddress = errors.New("no address registered")
)

// Caller captures the subset of ethclient used for read-only calls.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// The lookup contract maps keccak256-hashed keys to addresses.
const lookupABIJSON = `[{"inputs":[{"internalType":"bytes32","name":"_key","type":"bytes32"}],"name":"getAddress","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"}]`

// Contract is an immutable descriptor for a resolved contract.
type Contract struct {
	Name    string
	Address common.Address
	ABI     *abi.ABI
}

// Registry resolves logical contract names through the lookup contract
// and caches descriptors by name and by address.
type Registry struct {
	caller    Caller
	lookup    common.Address
	lookupABI abi.ABI
	abiDir    string
	byName    map[string]*Contract
	byAddr    map[common.Address]*Contract
}

// New builds a registry backed by the given lookup contract and a
// directory of interface descriptors (one <name>.json per contract).
func New(caller Caller, lookup common.Address, abiDir string) (*Registry, error) {
	parsed, err := abi.JSON(bytes.NewReader([]byte(lookupABIJSON)))
	if err != nil {
		return nil, fmt.Errorf("parse lookup abi: %w", err)
	}
	return &Registry{
		caller:    caller,
		lookup:    lookup,
		lookupABI: parsed,
		abiDir:    abiDir,
		byName:    map[string]*Contract{},
		byAddr:    map[common.Address]*Contract{},
	}, nil
}

// AddressKey computes the lookup key for a logical contract name.
func AddressKey(name string) common.Hash {
	return crypto.Keccak256Hash([]byte("contract.address" + name))
}

// ResolveAddress queries the lookup contract for the address bound to
// a logical name.
func (r *Registry) ResolveAddress(ctx context.Context, name string) (common.Address, error) {
	data, err := r.lookupABI.Pack("getAddress", AddressKey(name))
	if err != nil {
		return common.Address{}, fmt.Errorf("pack getAddress: %w", err)
	}
	out, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &r.lookup, Data: data}, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("resolve %s: %w", name, err)
	}
	res, err := r.lookupABI.Unpack("getAddress", out)
	if err != nil {
		return common.Address{}, fmt.Errorf("unpack getAddress for %s: %w", name, err)
	}
	addr, ok := res[0].(common.Address)
	if !ok || addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("resolve %s: %w", name, ErrNoAddress)
	}
	return addr, nil
}

// Load resolves a logical name, reads its interface descriptor from
// disk, and caches the handle for later by-name and by-address lookups.
func (r *Registry) Load(ctx context.Context, name string) (*Contract, error) {
	if c, ok := r.byName[name]; ok {
		return c, nil
	}

	addr, err := r.ResolveAddress(ctx, name)
	if err != nil {
		return nil, err
	}

	parsed, err := loadABI(r.abiDir, name)
	if err != nil {
		return nil, err
	}

	c := &Contract{Name: name, Address: addr, ABI: parsed}
	r.byName[name] = c
	r.byAddr[addr] = c
	return c, nil
}

// ByAddress returns the descriptor cached for a previously loaded
// address. The enrichment stage uses it to pick the interface for an
// event's originating contract.
func (r *Registry) ByAddress(addr common.Address) (*Contract, error) {
	c, ok := r.byAddr[addr]
	if !ok {
		return nil, fmt.Errorf("%s: %w", addr.Hex(), ErrNotFound)
	}
	return c, nil
}

// Call issues a read-only call against a loaded contract and returns
// the unpacked outputs.
func (r *Registry) Call(ctx context.Context, c *Contract, method string, args ...any) ([]any, error) {
	data, err := c.ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s.%s: %w", c.Name, method, err)
	}
	out, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &c.Address, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s.%s: %w", c.Name, method, err)
	}
	res, err := c.ABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s.%s: %w", c.Name, method, err)
	}
	return res, nil
}

// CallByName is Call with an implicit Load of the target contract.
func (r *Registry) CallByName(ctx context.Context, name, method string, args ...any) ([]any, error) {
	c, err := r.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	return r.Call(ctx, c, method, args...)
}

func loadABI(dir, name string) (*abi.ABI, error) {
	path := filepath.Join(dir, name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read abi %s: %w", path, err)
	}
	parsed, err := abi.JSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse abi %s: %w", path, err)
	}
	return &parsed, nil
}
