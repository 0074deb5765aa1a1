//go:build ignore

package main

import (
	"bytes"
	"fmt"
	"os"

	"StudentIntro/internal/address"
	"StudentIntro/internal/ledger"
	"StudentIntro/internal/storage"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "Usage: %s <db1_path> <db2_path>\n", os.Args[0])
		os.Exit(1)
	}

	db1Path := os.Args[1]
	db2Path := os.Args[2]

	db1, err := storage.New(db1Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db1: %v\n", err)
		os.Exit(1)
	}
	defer db1.Close()

	db2, err := storage.New(db2Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db2: %v\n", err)
		os.Exit(1)
	}
	defer db2.Close()

	accounts1, err := collectAccounts(ledger.New(db1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "read db1: %v\n", err)
		os.Exit(1)
	}

	accounts2, err := collectAccounts(ledger.New(db2))
	if err != nil {
		fmt.Fprintf(os.Stderr, "read db2: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("DB1 (%s): %d accounts\n", db1Path, len(accounts1))
	fmt.Printf("DB2 (%s): %d accounts\n", db2Path, len(accounts2))

	missing1, missing2, different := compare(accounts1, accounts2)

	if len(missing1) == 0 && len(missing2) == 0 && len(different) == 0 {
		fmt.Println("\nLedgers are identical")
		os.Exit(0)
	}

	fmt.Println("\nLedgers differ:")
	printAddrs("Accounts in DB1 but not in DB2", missing1)
	printAddrs("Accounts in DB2 but not in DB1", missing2)
	printAddrs("Accounts with different content", different)

	os.Exit(1)
}

// collectAccounts returns every account's encoded form keyed by address.
func collectAccounts(l *ledger.Ledger) (map[address.Address][]byte, error) {
	accounts := make(map[address.Address][]byte)

	err := l.Each(func(addr address.Address, acc *ledger.Account) error {
		accounts[addr] = ledger.EncodeAccount(acc)
		return nil
	})

	return accounts, err
}

func compare(acc1, acc2 map[address.Address][]byte) (missing1, missing2, different []address.Address) {
	for addr := range acc1 {
		if _, ok := acc2[addr]; !ok {
			missing1 = append(missing1, addr)
		}
	}

	for addr := range acc2 {
		if _, ok := acc1[addr]; !ok {
			missing2 = append(missing2, addr)
		}
	}

	for addr, data1 := range acc1 {
		if data2, ok := acc2[addr]; ok && !bytes.Equal(data1, data2) {
			different = append(different, addr)
		}
	}

	return
}

func printAddrs(label string, addrs []address.Address) {
	if len(addrs) == 0 {
		return
	}

	fmt.Printf("  - %s: %d\n", label, len(addrs))
	for _, addr := range addrs {
		fmt.Printf("      %s\n", addr)
	}
}
