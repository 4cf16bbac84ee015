package jsonrpc

import (
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/holiman/uint256"

	"mmw/config"
	"mmw/errors"
	"mmw/jsonx"
	"mmw/logx"
	"mmw/ratelimit"
	"mmw/types"
	"mmw/wallet"
)

// --- Error type used by handlers ---

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func toJRPC2Error(e *rpcError) error {
	if e == nil {
		return nil
	}
	var walletError errors.WalletError
	err := jsonx.Unmarshal([]byte(e.Message), &walletError)
	if err == nil {
		return jrpc2.Errorf(jrpc2.Code(e.Code), "%s", walletError.Message).WithData(walletError)
	}
	return jrpc2.Errorf(jrpc2.Code(e.Code), "%s", e.Message)
}

func fromWalletError(err error) *rpcError {
	code := -32000
	switch errors.CodeOf(err) {
	case errors.ErrCodeNotSigner, errors.ErrCodeNotGovernance, errors.ErrCodeNotCanceller:
		code = -32001
	case errors.ErrCodeWrongStatus, errors.ErrCodeProposalExpired, errors.ErrCodeUnknownProposal:
		code = -32002
	case errors.ErrCodeEmptyBatch, errors.ErrCodeInvalidAddress, errors.ErrCodeDuplicateSigner,
		errors.ErrCodeSignerBound, errors.ErrCodeLastSigner, errors.ErrCodeBadExpiration,
		errors.ErrCodeAlreadyVoted, errors.ErrCodeNoVote:
		code = -32003
	case errors.ErrCodeInvalidSignature:
		code = -32004
	case errors.ErrCodeInsufficientVotes, errors.ErrCodeExecutionFailed:
		code = -32005
	}
	return &rpcError{Code: code, Message: err.Error()}
}

// --- Params/Results ---

type operationParams struct {
	Target  string `json:"target"`
	Value   string `json:"value"`
	Payload string `json:"payload"`
}

type proposeParams struct {
	Proposer   string            `json:"proposer"`
	Operations []operationParams `json:"operations"`
	Expiration uint64            `json:"expiration"`
}

type proposeResponse struct {
	ID uint64 `json:"id"`
}

type voteParams struct {
	ID    uint64 `json:"id"`
	Voter string `json:"voter"`
}

type voteOnBehalfParams struct {
	ID        uint64 `json:"id"`
	Voter     string `json:"voter"`
	Support   bool   `json:"support"`
	Signature string `json:"signature"`
}

type executeParams struct {
	ID uint64 `json:"id"`
}

type cancelParams struct {
	ID     uint64 `json:"id"`
	Caller string `json:"caller"`
}

type okResponse struct {
	Ok bool `json:"ok"`
}

type getSignersResponse struct {
	Signers    []string `json:"signers"`
	Count      int      `json:"count"`
	MaxSigners int      `json:"max_signers"`
}

type proposalQuery struct {
	ID uint64 `json:"id"`
}

type proposalInfo struct {
	ID            uint64            `json:"id"`
	Proposer      string            `json:"proposer"`
	Expiration    uint64            `json:"expiration"`
	Status        string            `json:"status"`
	Operations    []operationParams `json:"operations"`
	YesVoters     []string          `json:"yes_voters"`
	ValidYesCount int               `json:"valid_yes_count"`
}

type hasVotedResponse struct {
	HasVoted bool `json:"has_voted"`
}

type voterHistoryResponse struct {
	YesVoters []string `json:"yes_voters"`
}

type validYesCountResponse struct {
	ValidYesCount int `json:"valid_yes_count"`
	SignerCount   int `json:"signer_count"`
}

type nonceQuery struct {
	Address string `json:"address"`
}

type nonceResponse struct {
	Nonce uint64 `json:"nonce"`
}

// --- Server ---

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int
}

type Server struct {
	addr       string
	wallet     *wallet.Wallet
	rpcCfg     *config.RPCConfig
	corsConfig CORSConfig
	httpSrv    *http.Server
	limiter    *ratelimit.Limiter
}

func NewServer(addr string, w *wallet.Wallet, rpcCfg *config.RPCConfig) *Server {
	if rpcCfg == nil {
		rpcCfg = config.DefaultRPCConfig()
	}
	s := &Server{
		addr:   addr,
		wallet: w,
		rpcCfg: rpcCfg,
	}
	if rpcCfg.RateLimitPerSec > 0 {
		s.limiter = ratelimit.NewLimiter(&ratelimit.Config{
			MaxRequests:     rpcCfg.RateLimitPerSec,
			WindowSize:      time.Second,
			CleanupInterval: 5 * time.Minute,
		})
	}
	return s
}

// SetCORSConfig allows configuring CORS settings
func (s *Server) SetCORSConfig(cfg CORSConfig) {
	s.corsConfig = cfg
}

func (s *Server) Start() {
	methods := s.buildMethodMap()
	jh := jhttp.NewBridge(methods, &jhttp.BridgeOptions{Server: &jrpc2.ServerOptions{}})

	mux := http.NewServeMux()
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.setCORSHeaders(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if s.limiter != nil && !s.limiter.Allow(clientKey(r)) {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		jh.ServeHTTP(w, r)
	}))

	s.httpSrv = &http.Server{Addr: s.addr, Handler: mux}
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Error("RPC", "rpc server stopped:", err.Error())
		}
	}()
	logx.Info("RPC", "rpc server listening on ", s.addr)
}

func (s *Server) Stop(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// clientKey buckets requests by remote host for rate limiting
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) setCORSHeaders(w http.ResponseWriter) {
	if len(s.corsConfig.AllowedOrigins) > 0 {
		w.Header().Set("Access-Control-Allow-Origin", strings.Join(s.corsConfig.AllowedOrigins, ","))
	}
	if len(s.corsConfig.AllowedMethods) > 0 {
		w.Header().Set("Access-Control-Allow-Methods", strings.Join(s.corsConfig.AllowedMethods, ","))
	}
	if len(s.corsConfig.AllowedHeaders) > 0 {
		w.Header().Set("Access-Control-Allow-Headers", strings.Join(s.corsConfig.AllowedHeaders, ","))
	}
}

// Build jrpc2 method map
func (s *Server) buildMethodMap() handler.Map {
	return handler.Map{
		"wallet.propose": handler.New(func(ctx context.Context, p proposeParams) (*proposeResponse, error) {
			res, err := s.rpcPropose(p)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return res, nil
		}),
		"wallet.votefor": handler.New(func(ctx context.Context, p voteParams) (*okResponse, error) {
			if err := s.wallet.VoteFor(p.ID, p.Voter); err != nil {
				return nil, toJRPC2Error(fromWalletError(err))
			}
			return &okResponse{Ok: true}, nil
		}),
		"wallet.cancelvotefor": handler.New(func(ctx context.Context, p voteParams) (*okResponse, error) {
			if err := s.wallet.CancelVoteFor(p.ID, p.Voter); err != nil {
				return nil, toJRPC2Error(fromWalletError(err))
			}
			return &okResponse{Ok: true}, nil
		}),
		"wallet.voteonbehalfof": handler.New(func(ctx context.Context, p voteOnBehalfParams) (*okResponse, error) {
			sig, err := hex.DecodeString(strings.TrimPrefix(p.Signature, "0x"))
			if err != nil {
				return nil, toJRPC2Error(&rpcError{Code: -32602, Message: "signature must be hex encoded"})
			}
			if err := s.wallet.VoteOnBehalfOf(p.ID, p.Voter, p.Support, sig); err != nil {
				return nil, toJRPC2Error(fromWalletError(err))
			}
			return &okResponse{Ok: true}, nil
		}),
		"wallet.execute": handler.New(func(ctx context.Context, p executeParams) (*okResponse, error) {
			if err := s.wallet.Execute(p.ID); err != nil {
				return nil, toJRPC2Error(fromWalletError(err))
			}
			return &okResponse{Ok: true}, nil
		}),
		"wallet.cancelproposal": handler.New(func(ctx context.Context, p cancelParams) (*okResponse, error) {
			if err := s.wallet.CancelProposal(p.ID, p.Caller); err != nil {
				return nil, toJRPC2Error(fromWalletError(err))
			}
			return &okResponse{Ok: true}, nil
		}),
		"wallet.getsigners": handler.New(func(ctx context.Context) (*getSignersResponse, error) {
			return &getSignersResponse{
				Signers:    s.wallet.GetSigners(),
				Count:      s.wallet.GetSignerCount(),
				MaxSigners: s.wallet.MaxSigners(),
			}, nil
		}),
		"wallet.getsignercount": handler.New(func(ctx context.Context) (*getSignersResponse, error) {
			return &getSignersResponse{
				Count:      s.wallet.GetSignerCount(),
				MaxSigners: s.wallet.MaxSigners(),
			}, nil
		}),
		"wallet.getproposal": handler.New(func(ctx context.Context, p proposalQuery) (*proposalInfo, error) {
			res, err := s.rpcGetProposal(p)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return res, nil
		}),
		"wallet.hasvoted": handler.New(func(ctx context.Context, p voteParams) (*hasVotedResponse, error) {
			return &hasVotedResponse{HasVoted: s.wallet.HasVoted(p.ID, p.Voter)}, nil
		}),
		"wallet.getyesvoterhistory": handler.New(func(ctx context.Context, p proposalQuery) (*voterHistoryResponse, error) {
			return &voterHistoryResponse{YesVoters: s.wallet.GetYesVoterHistory(p.ID)}, nil
		}),
		"wallet.getvalidyescount": handler.New(func(ctx context.Context, p proposalQuery) (*validYesCountResponse, error) {
			return &validYesCountResponse{
				ValidYesCount: s.wallet.GetValidYesCount(p.ID),
				SignerCount:   s.wallet.GetSignerCount(),
			}, nil
		}),
		"wallet.getnonce": handler.New(func(ctx context.Context, p nonceQuery) (*nonceResponse, error) {
			return &nonceResponse{Nonce: s.wallet.GetNonce(p.Address)}, nil
		}),
		"wallet.getdomaininfo": handler.New(func(ctx context.Context) (*types.DomainInfo, error) {
			domain := s.wallet.GetDomainInfo()
			return &domain, nil
		}),
	}
}

func (s *Server) rpcPropose(p proposeParams) (*proposeResponse, *rpcError) {
	if s.rpcCfg.MaxBatchOps > 0 && len(p.Operations) > s.rpcCfg.MaxBatchOps {
		return nil, &rpcError{Code: -32602, Message: fmt.Sprintf("batch exceeds %d operations", s.rpcCfg.MaxBatchOps)}
	}

	ops := make([]types.Operation, len(p.Operations))
	for i, op := range p.Operations {
		value := uint256.NewInt(0)
		if op.Value != "" {
			parsed, err := uint256.FromDecimal(op.Value)
			if err != nil {
				return nil, &rpcError{Code: -32602, Message: fmt.Sprintf("operation %d: invalid value: %v", i, err)}
			}
			value = parsed
		}
		payload, err := hex.DecodeString(strings.TrimPrefix(op.Payload, "0x"))
		if err != nil {
			return nil, &rpcError{Code: -32602, Message: fmt.Sprintf("operation %d: payload must be hex encoded", i)}
		}
		ops[i] = types.Operation{Target: op.Target, Value: value, Payload: payload}
	}

	id, err := s.wallet.Propose(p.Proposer, ops, p.Expiration)
	if err != nil {
		return nil, fromWalletError(err)
	}
	return &proposeResponse{ID: id}, nil
}

func (s *Server) rpcGetProposal(p proposalQuery) (*proposalInfo, *rpcError) {
	proposal := s.wallet.GetProposal(p.ID)
	if proposal == nil {
		return nil, fromWalletError(errors.NewError(errors.ErrCodeUnknownProposal, fmt.Sprintf("proposal %d not found", p.ID)))
	}

	ops := make([]operationParams, len(proposal.Operations))
	for i, op := range proposal.Operations {
		ops[i] = operationParams{
			Target:  op.Target,
			Value:   op.Value.String(),
			Payload: "0x" + hex.EncodeToString(op.Payload),
		}
	}

	return &proposalInfo{
		ID:            proposal.ID,
		Proposer:      proposal.Proposer,
		Expiration:    proposal.Expiration,
		Status:        proposal.Status.String(),
		Operations:    ops,
		YesVoters:     proposal.YesVoters,
		ValidYesCount: s.wallet.GetValidYesCount(p.ID),
	}, nil
}
