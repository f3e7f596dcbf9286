package ussd

import "fmt"

const (
	tokenSymbol  = "A0GI"
	ussdShortURL = "*384*77#"
	divider      = "──────────────────"
)

const menuOptions = `1. Check Balance ✅
2. Deposit (get address)
3. Transfer Assets
4. Buy Crypto (NGN→A0GI)
5. Sell Crypto (A0GI→NGN)
0. Contact Support`

var (
	textMainMenu = "O-Link | 0G Decentralized AI\n" + divider + "\n" + menuOptions

	textHelp = `O-Link | Help
` + divider + `
Powered by 0G Labs Decentralized AI
Every balance & transfer is verified
on the 0G Blockchain.

Support: support@olink.app
USSD: ` + ussdShortURL + `
Theme: Coal to Code - Enugu 🇳🇬`

	textWelcome = `Welcome to O-Link 🚀
Powered by 0G Decentralized AI

New account detected.
We will create your 0G wallet.

Create a 4-digit Transaction PIN:`

	textWalletCreated = "🎉 O-Link Wallet Created!\nYour 0G Wallet is ready.\n" + divider +
		"\nDial " + ussdShortURL + " and choose:\n" + menuOptions

	textTransferMenu = "Transfer Assets\n" + divider + "\nSend to:\n1. Phone Number (O-Link user)\n2. Wallet Address"

	textChainMenu = "Select Chain:\n1. 0G Galileo (A0GI)\n2. Ethereum (ETH)"
)

const (
	textConfirmPIN        = "Confirm your 4-digit PIN:"
	textInvalidPINRetry   = "Invalid PIN. Enter exactly 4 digits:"
	textInvalidPINRestart = "Invalid PIN. PIN must be exactly 4 digits.\nDial again to start over."
	textPINMismatch       = "PINs do not match.\nDial again to start over."
	textAlreadyRegistered = "Your O-Link wallet already exists.\nDial " + ussdShortURL + " to open the menu."
	textSessionExpired    = "Session expired. Dial again to continue."

	textInvalidOption    = "Invalid option. Dial again."
	textInvalidChain     = "Invalid chain selection."
	textInvalidSelection = "Invalid selection."
	textInvalidAmount    = "Invalid amount. Dial again."
	textInvalidAddress   = "Invalid wallet address. Dial again."
	textRecipientPhone   = "Enter recipient phone number\n(with country code, e.g. 2348012345678):"
	textRecipientAddress = "Enter recipient wallet address:"
	textTransferAmount   = "Enter amount to send (" + tokenSymbol + "):"
	textWrongPINTransfer = "Wrong PIN. Transfer cancelled.\nDial again to retry."
	textWrongPINSale     = "Wrong PIN. Sale cancelled."
	textPINLocked        = "Too many wrong PIN attempts.\nTry again in a few minutes."

	textMinimumPurchase  = "Minimum purchase is NGN 100."
	textInvalidSale      = "Invalid amount."
	textBankAccount      = "Enter your 10-digit bank account number:"
	textBankCode         = "Enter your bank code:\n(e.g. 058=GTB, 033=UBA, 044=Access)\nType your bank code:"
	textAccountUnchecked = "Could not verify bank account.\nCheck account number and bank code.\nDial again to retry."

	textSystemError    = "System error. Please try again."
	textUpstreamFailed = "Service temporarily unavailable.\nPlease try again in a moment."
)

func textVerifiedBalance(b Balance) string {
	return fmt.Sprintf("0G Balance Verified ✅\nAmount: %s %s\n%s\nProof ID: %s\nVerified by 0G AI on-chain.\nNo trust required.",
		b.Amount, b.Symbol, divider, b.ProofID)
}

func textSecondaryChain(address string) string {
	return fmt.Sprintf("ETH Network\nAddress: %s\nCheck balance at:\netherscan.io/address/%s", ShortAddress(address), address)
}

func textDeposit(address string) string {
	return fmt.Sprintf("Deposit Address:\n%s\n\nFull address sent via SMS 📱\nNetwork: 0G Galileo Testnet\nToken: %s", ShortAddress(address), tokenSymbol)
}

func textRecipientNotFound(phone string) string {
	return fmt.Sprintf("Recipient not found.\nPhone %s is not registered on O-Link.\nAsk them to dial %s to join.", phone, ussdShortURL)
}

func textConfirmTransfer(to, amount, fee string) string {
	return fmt.Sprintf("Confirm Transfer:\nTo: %s\nAmount: %s %s\nEst. Fee: %s %s\n%s\nEnter your 4-digit PIN:",
		ShortAddress(to), amount, tokenSymbol, fee, tokenSymbol, divider)
}

func textTransferDone(amount, proofID string) string {
	return fmt.Sprintf("Transfer Successful ✅\nAmount: %s %s sent\n0G Proof: %s\nCheck SMS for full tx details.", amount, tokenSymbol, proofID)
}

func textBuyQuote(r Rate) string {
	return fmt.Sprintf("Buy %s with NGN\nRate: 1 %s ≈ %s NGN\n(Verified by 0G AI Oracle)\n%s\nEnter NGN amount to spend:",
		tokenSymbol, tokenSymbol, formatRate(r.FiatPerUnit), divider)
}

func textBuyStarted(c Charge, fiat string) string {
	return fmt.Sprintf("Buying %s %s\nNGN %s via Paystack\n\nPayment link sent to your phone via SMS 📱\nComplete payment to receive crypto.\nRef: %s",
		c.CryptoEstimate, tokenSymbol, fiat, RefTail(c.Reference))
}

func textSellQuote(r Rate) string {
	return fmt.Sprintf("Sell %s for NGN\nRate: 1 %s ≈ %s NGN\n%s\nEnter %s amount to sell:",
		tokenSymbol, tokenSymbol, formatRate(r.FiatPerUnit), divider, tokenSymbol)
}

func textConfirmSale(amount, fiat, accountName string) string {
	return fmt.Sprintf("Confirm Sale:\nSell: %s %s\nReceive: NGN %s\nTo: %s\n%s\nEnter your 4-digit PIN:",
		amount, tokenSymbol, fiat, accountName, divider)
}

func textSaleDone(amount, fiat, accountName, reference string) string {
	return fmt.Sprintf("Sale Initiated ✅\n%s %s → NGN %s\nTo: %s\nPayout Ref: %s\nYou'll receive NGN within 30 mins.",
		amount, tokenSymbol, fiat, accountName, RefTail(reference))
}
