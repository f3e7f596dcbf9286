// Package ussd implements the stateless USSD dialog engine.
//
// Each dial event carries the full keystroke history of a session. The
// engine decodes it into tokens, folds the tokens into exactly one Step
// with Reduce (a pure function), and only then executes that step against
// the collaborators. Mutating collaborator calls happen on commit steps
// alone: wallet provisioning, transfer, charge and payout.
package ussd
