// veilctl is a local demo driver for the confidential balance protocol:
// key generation, standalone range proofs and a full veil/transfer/unveil
// walkthrough, all in-process.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veilchain/go-veiled/internal/crypto/elgamal"
	"github.com/veilchain/go-veiled/internal/crypto/pedersen"
	"github.com/veilchain/go-veiled/internal/crypto/zk/rangeproof"
	"github.com/veilchain/go-veiled/internal/custodian"
	"github.com/veilchain/go-veiled/internal/protocol/confidential"
	"github.com/veilchain/go-veiled/internal/provider"
	"github.com/veilchain/go-veiled/pkg/veiled"
	"github.com/veilchain/go-veiled/pkg/wallet"
)

var (
	rangeValue uint32
	rangeBits  int
)

func main() {
	root := &cobra.Command{
		Use:   "veilctl",
		Short: "Confidential balance protocol demo tool",
	}

	keygenCmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an ElGamal encryption key pair",
		RunE:  runKeygen,
	}

	rangeproofCmd := &cobra.Command{
		Use:   "rangeproof",
		Short: "Commit to a value, prove it in range, verify the proof",
		RunE:  runRangeproof,
	}
	rangeproofCmd.Flags().Uint32Var(&rangeValue, "value", 42, "value to commit to")
	rangeproofCmd.Flags().IntVar(&rangeBits, "bits", rangeproof.MaxBits, "range width in bits")

	demoCmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a full veil/transfer/unveil scenario locally",
		RunE:  runDemo,
	}

	root.AddCommand(keygenCmd, rangeproofCmd, demoCmd)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runKeygen(cmd *cobra.Command, args []string) error {
	key, err := elgamal.GenerateKey(rand.Reader)
	if err != nil {
		return err
	}
	fmt.Printf("public key:  %s\n", hex.EncodeToString(key.PublicKey.Bytes()))
	fmt.Printf("secret key:  %s\n", hex.EncodeToString(key.S.Bytes()))
	return nil
}

func runRangeproof(cmd *cobra.Command, args []string) error {
	comm, blind, err := pedersen.CommitRandom(rangeValue)
	if err != nil {
		return err
	}
	proof, err := rangeproof.Prove(rangeValue, blind, rangeBits, []byte("veilctl"))
	if err != nil {
		return err
	}

	fmt.Printf("commitment: %s\n", hex.EncodeToString(comm.Bytes()))
	fmt.Printf("proof size: %d bytes (%d bits)\n", len(proof.Bytes()), rangeBits)
	fmt.Printf("verified:   %v\n", proof.Verify(comm, rangeBits, []byte("veilctl")))
	return nil
}

func runDemo(cmd *cobra.Command, args []string) error {
	fmt.Println("=== go-veiled demo: confidential balance protocol ===")

	vault := custodian.New()
	proto := confidential.New("vUSD", provider.New(), vault, veiled.DefaultAmountCodec())

	alice, err := wallet.New("alice")
	if err != nil {
		return err
	}
	bob, err := wallet.New("bob")
	if err != nil {
		return err
	}
	if err := proto.Register(alice.Account, alice.PublicKeyBytes()); err != nil {
		return err
	}
	if err := proto.Register(bob.Account, bob.PublicKeyBytes()); err != nil {
		return err
	}
	fmt.Println("registered alice and bob")

	vault.Mint("alice", 10<<16)
	if err := proto.VeilSelf("alice", 10); err != nil {
		return err
	}
	fmt.Printf("alice veiled 10 units; custodied: %d\n", proto.TotalCustodied())

	aliceBal, err := proto.BalanceCiphertext("alice")
	if err != nil {
		return err
	}
	req, err := alice.BuildTransfer(aliceBal.Bytes(), 10, bob.PublicKeyBytes(), 4)
	if err != nil {
		return err
	}
	if err := proto.Transfer("alice", "bob", req.WithdrawCT, req.DepositCT,
		req.BalanceComm, req.AmountComm, req.NewBalanceProof, req.AmountProof, req.TransferProof); err != nil {
		return err
	}
	fmt.Println("alice transferred a hidden amount to bob")

	bobBal, err := proto.BalanceCiphertext("bob")
	if err != nil {
		return err
	}
	opened, err := bob.OpenBalance(bobBal.Bytes())
	if err != nil {
		return err
	}
	fmt.Printf("bob opened his balance: %d\n", opened)

	unveilReq, err := bob.BuildUnveil(bobBal.Bytes(), opened, 4)
	if err != nil {
		return err
	}
	if err := proto.UnveilSelf("bob", 4, unveilReq.BalanceComm,
		unveilReq.NewBalanceProof, unveilReq.LinkProof); err != nil {
		return err
	}
	fmt.Printf("bob unveiled 4 units; public balance: %d, custodied: %d\n",
		vault.PublicBalance("bob"), proto.TotalCustodied())
	return nil
}
