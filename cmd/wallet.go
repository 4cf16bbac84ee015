package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/spf13/cobra"

	"mmw/crypto"
	"mmw/logx"
	"mmw/types"
)

type WalletCliConfig struct {
	NodeURL        string
	PrivateKeyFile string
	PrivateKey     string
	Proposer       string
	Voter          string
	Caller         string
	ProposalID     uint64
	Target         string
	Value          string
	Payload        string
	ExpiresIn      int64
	Support        bool
	Nonce          uint64
	UseNonceFlag   bool
	ChainID        uint64
	WalletAddress  string
	DomainName     string
	DomainVersion  string
	Verbose        bool
}

var walletCliConfig WalletCliConfig

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Wallet client commands",
	Long:  "Commands for interacting with a running wallet node: proposals, votes, execution, and offline vote signing.",
}

var proposeCmd = &cobra.Command{
	Use:   "propose",
	Short: "Create a new proposal",
	Long:  "Create a proposal with a single operation. The proposer's yes-vote is cast automatically.",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runPropose(walletCliConfig); err != nil {
			logx.Error("WALLET CLI", err)
		}
	},
}

var voteCmd = &cobra.Command{
	Use:   "vote",
	Short: "Cast a yes-vote",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSimpleVote("wallet.votefor", walletCliConfig); err != nil {
			logx.Error("WALLET CLI", err)
		}
	},
}

var retractCmd = &cobra.Command{
	Use:   "retract",
	Short: "Retract a yes-vote",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSimpleVote("wallet.cancelvotefor", walletCliConfig); err != nil {
			logx.Error("WALLET CLI", err)
		}
	},
}

var executeCmd = &cobra.Command{
	Use:   "execute",
	Short: "Execute an approved proposal",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runExecute(walletCliConfig); err != nil {
			logx.Error("WALLET CLI", err)
		}
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel a still-open proposal",
	Long:  "Cancel a proposal. Only the original proposer, while still a signer, may cancel this way.",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runCancel(walletCliConfig); err != nil {
			logx.Error("WALLET CLI", err)
		}
	},
}

var signersCmd = &cobra.Command{
	Use:   "signers",
	Short: "Show the current signer set",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSigners(walletCliConfig); err != nil {
			logx.Error("WALLET CLI", err)
		}
	},
}

var proposalCmd = &cobra.Command{
	Use:   "proposal",
	Short: "Show one proposal",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runGetProposal(walletCliConfig); err != nil {
			logx.Error("WALLET CLI", err)
		}
	},
}

var signVoteCmd = &cobra.Command{
	Use:   "sign-vote",
	Short: "Sign a vote offline",
	Long:  "Build the domain-bound vote digest and sign it locally. Produces the signature only; submit it with send-vote.",
	Run: func(cmd *cobra.Command, args []string) {
		walletCliConfig.UseNonceFlag = cmd.Flags().Changed("nonce")
		if err := runSignVote(walletCliConfig); err != nil {
			logx.Error("WALLET CLI", err)
		}
	},
}

var sendVoteCmd = &cobra.Command{
	Use:   "send-vote",
	Short: "Submit a signed vote on behalf of a signer",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSendVote(walletCliConfig); err != nil {
			logx.Error("WALLET CLI", err)
		}
	},
}

func init() {
	walletCmd.PersistentFlags().StringVar(&walletCliConfig.NodeURL, "node", "http://localhost:8645", "Wallet node RPC URL")
	walletCmd.PersistentFlags().BoolVar(&walletCliConfig.Verbose, "verbose", false, "Verbose output")

	proposeCmd.Flags().StringVar(&walletCliConfig.Proposer, "proposer", "", "Proposer address")
	proposeCmd.Flags().StringVar(&walletCliConfig.Target, "target", "", "Operation target address")
	proposeCmd.Flags().StringVar(&walletCliConfig.Value, "value", "0", "Operation value")
	proposeCmd.Flags().StringVar(&walletCliConfig.Payload, "payload", "", "Operation payload, hex encoded")
	proposeCmd.Flags().Int64Var(&walletCliConfig.ExpiresIn, "expires-in", 86400, "Proposal lifetime in seconds")

	voteCmd.Flags().Uint64Var(&walletCliConfig.ProposalID, "proposal", 0, "Proposal id")
	voteCmd.Flags().StringVar(&walletCliConfig.Voter, "voter", "", "Voter address")
	retractCmd.Flags().Uint64Var(&walletCliConfig.ProposalID, "proposal", 0, "Proposal id")
	retractCmd.Flags().StringVar(&walletCliConfig.Voter, "voter", "", "Voter address")

	executeCmd.Flags().Uint64Var(&walletCliConfig.ProposalID, "proposal", 0, "Proposal id")

	cancelCmd.Flags().Uint64Var(&walletCliConfig.ProposalID, "proposal", 0, "Proposal id")
	cancelCmd.Flags().StringVar(&walletCliConfig.Caller, "caller", "", "Caller address")

	proposalCmd.Flags().Uint64Var(&walletCliConfig.ProposalID, "proposal", 0, "Proposal id")

	signVoteCmd.Flags().StringVar(&walletCliConfig.PrivateKeyFile, "key-file", "", "File holding the hex private key")
	signVoteCmd.Flags().StringVar(&walletCliConfig.PrivateKey, "key", "", "Hex private key (prefer --key-file)")
	signVoteCmd.Flags().Uint64Var(&walletCliConfig.ProposalID, "proposal", 0, "Proposal id")
	signVoteCmd.Flags().BoolVar(&walletCliConfig.Support, "support", true, "true to cast yes, false to retract")
	signVoteCmd.Flags().Uint64Var(&walletCliConfig.Nonce, "nonce", 0, "Signer nonce; fetched from the node when omitted")
	signVoteCmd.Flags().Uint64Var(&walletCliConfig.ChainID, "chain-id", 0, "Chain id; fetched from the node when omitted")
	signVoteCmd.Flags().StringVar(&walletCliConfig.WalletAddress, "wallet-address", "", "Wallet instance address; fetched from the node when omitted")
	signVoteCmd.Flags().StringVar(&walletCliConfig.DomainName, "domain-name", "", "Domain name override")
	signVoteCmd.Flags().StringVar(&walletCliConfig.DomainVersion, "domain-version", "", "Domain version override")

	sendVoteCmd.Flags().Uint64Var(&walletCliConfig.ProposalID, "proposal", 0, "Proposal id")
	sendVoteCmd.Flags().StringVar(&walletCliConfig.Voter, "voter", "", "Voter the signature belongs to")
	sendVoteCmd.Flags().BoolVar(&walletCliConfig.Support, "support", true, "true to cast yes, false to retract")
	sendVoteCmd.Flags().StringVar(&walletCliConfig.Payload, "signature", "", "Hex signature produced by sign-vote")

	walletCmd.AddCommand(proposeCmd, voteCmd, retractCmd, executeCmd, cancelCmd, signersCmd, proposalCmd, signVoteCmd, sendVoteCmd)
	rootCmd.AddCommand(walletCmd)
}

func dialNode(cfg WalletCliConfig) (*jrpc2.Client, func()) {
	ch := jhttp.NewChannel(cfg.NodeURL, nil)
	cli := jrpc2.NewClient(ch, nil)
	return cli, func() { cli.Close() }
}

func callNode(cfg WalletCliConfig, method string, params, result interface{}) error {
	cli, done := dialNode(cfg)
	defer done()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := cli.Call(ctx, method, params)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	return resp.UnmarshalResult(result)
}

func runPropose(cfg WalletCliConfig) error {
	if cfg.Proposer == "" || cfg.Target == "" {
		return fmt.Errorf("--proposer and --target are required")
	}

	params := map[string]interface{}{
		"proposer": cfg.Proposer,
		"operations": []map[string]string{{
			"target":  cfg.Target,
			"value":   cfg.Value,
			"payload": cfg.Payload,
		}},
		"expiration": uint64(time.Now().Unix() + cfg.ExpiresIn),
	}

	var result struct {
		ID uint64 `json:"id"`
	}
	if err := callNode(cfg, "wallet.propose", params, &result); err != nil {
		return err
	}
	fmt.Printf("proposal created: id=%d\n", result.ID)
	return nil
}

func runSimpleVote(method string, cfg WalletCliConfig) error {
	if cfg.Voter == "" {
		return fmt.Errorf("--voter is required")
	}
	params := map[string]interface{}{"id": cfg.ProposalID, "voter": cfg.Voter}
	if err := callNode(cfg, method, params, nil); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

func runExecute(cfg WalletCliConfig) error {
	params := map[string]interface{}{"id": cfg.ProposalID}
	if err := callNode(cfg, "wallet.execute", params, nil); err != nil {
		return err
	}
	fmt.Printf("proposal %d executed\n", cfg.ProposalID)
	return nil
}

func runCancel(cfg WalletCliConfig) error {
	if cfg.Caller == "" {
		return fmt.Errorf("--caller is required")
	}
	params := map[string]interface{}{"id": cfg.ProposalID, "caller": cfg.Caller}
	if err := callNode(cfg, "wallet.cancelproposal", params, nil); err != nil {
		return err
	}
	fmt.Printf("proposal %d cancelled\n", cfg.ProposalID)
	return nil
}

func runSigners(cfg WalletCliConfig) error {
	var result struct {
		Signers    []string `json:"signers"`
		Count      int      `json:"count"`
		MaxSigners int      `json:"max_signers"`
	}
	if err := callNode(cfg, "wallet.getsigners", nil, &result); err != nil {
		return err
	}
	fmt.Printf("signers (%d/%d):\n", result.Count, result.MaxSigners)
	for _, s := range result.Signers {
		fmt.Printf("  %s\n", s)
	}
	return nil
}

func runGetProposal(cfg WalletCliConfig) error {
	var result struct {
		ID            uint64   `json:"id"`
		Proposer      string   `json:"proposer"`
		Expiration    uint64   `json:"expiration"`
		Status        string   `json:"status"`
		YesVoters     []string `json:"yes_voters"`
		ValidYesCount int      `json:"valid_yes_count"`
	}
	params := map[string]interface{}{"id": cfg.ProposalID}
	if err := callNode(cfg, "wallet.getproposal", params, &result); err != nil {
		return err
	}
	fmt.Printf("proposal %d: status=%s proposer=%s expires=%s\n", result.ID, result.Status, result.Proposer, time.Unix(int64(result.Expiration), 0).Format(time.RFC3339))
	fmt.Printf("yes voters (%d valid): %v\n", result.ValidYesCount, result.YesVoters)
	return nil
}

func runSignVote(cfg WalletCliConfig) error {
	keyHex := cfg.PrivateKey
	if cfg.PrivateKeyFile != "" {
		data, err := readKeyFile(cfg.PrivateKeyFile)
		if err != nil {
			return err
		}
		keyHex = data
	}
	if keyHex == "" {
		return fmt.Errorf("--key or --key-file is required")
	}
	priv, err := crypto.PrivKeyFromHex(keyHex)
	if err != nil {
		return err
	}
	signer := crypto.PubkeyToAddress(priv.PubKey())

	domain := types.DomainInfo{
		Name:          cfg.DomainName,
		Version:       cfg.DomainVersion,
		ChainID:       cfg.ChainID,
		WalletAddress: cfg.WalletAddress,
	}
	nonce := cfg.Nonce

	// Fill in whatever was not supplied from the node
	if domain.WalletAddress == "" {
		if err := callNode(cfg, "wallet.getdomaininfo", nil, &domain); err != nil {
			return fmt.Errorf("failed to fetch domain info: %w", err)
		}
	}
	if !cfg.UseNonceFlag && nonce == 0 {
		var nres struct {
			Nonce uint64 `json:"nonce"`
		}
		if err := callNode(cfg, "wallet.getnonce", map[string]interface{}{"address": signer}, &nres); err == nil {
			nonce = nres.Nonce
		}
	}
	if domain.Name == "" {
		domain.Name = "mmw"
	}
	if domain.Version == "" {
		domain.Version = "1"
	}

	digest, err := crypto.VoteDigest(domain, cfg.ProposalID, cfg.Support, nonce)
	if err != nil {
		return err
	}
	signature := crypto.SignDigest(priv, digest)

	fmt.Printf("signer:    %s\n", signer)
	fmt.Printf("nonce:     %d\n", nonce)
	fmt.Printf("signature: 0x%s\n", hex.EncodeToString(signature))
	return nil
}

func readKeyFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read key file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func runSendVote(cfg WalletCliConfig) error {
	if cfg.Voter == "" || cfg.Payload == "" {
		return fmt.Errorf("--voter and --signature are required")
	}
	params := map[string]interface{}{
		"id":        cfg.ProposalID,
		"voter":     cfg.Voter,
		"support":   cfg.Support,
		"signature": cfg.Payload,
	}
	if err := callNode(cfg, "wallet.voteonbehalfof", params, nil); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}
