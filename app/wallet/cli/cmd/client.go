package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ardanlabs/zimcoin/foundation/blockchain/database"
)

type account struct {
	Account string `json:"account"`
	Name    string `json:"name"`
	Balance uint64 `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

type actInfo struct {
	LatestBlock string    `json:"latest_block"`
	Uncommitted int       `json:"uncommitted"`
	Accounts    []account `json:"accounts"`
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// queryAccount asks the node for the account's balance and nonce.
func queryAccount(url string, addr database.Address) (account, error) {
	resp, err := http.Get(fmt.Sprintf("%s/v1/accounts/list/%s", url, addr))
	if err != nil {
		return account{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return account{}, responseError(resp)
	}

	var ai actInfo
	if err := json.NewDecoder(resp.Body).Decode(&ai); err != nil {
		return account{}, err
	}

	if len(ai.Accounts) != 1 {
		return account{}, fmt.Errorf("expected one account, got %d", len(ai.Accounts))
	}

	return ai.Accounts[0], nil
}

// submitTransaction posts the signed transaction to the node.
func submitTransaction(url string, tx database.Tx) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return err
	}

	resp, err := http.Post(fmt.Sprintf("%s/v1/tx/submit", url), "application/json", bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return responseError(resp)
	}

	return nil
}

func responseError(resp *http.Response) error {
	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("node returned %s", resp.Status)
	}

	if len(er.Fields) > 0 {
		return fmt.Errorf("node returned %s: %s: %v", resp.Status, er.Error, er.Fields)
	}

	return fmt.Errorf("node returned %s: %s", resp.Status, er.Error)
}
