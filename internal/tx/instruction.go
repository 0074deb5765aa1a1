package tx

import (
	"fmt"

	"StudentIntro/internal/address"
	"StudentIntro/internal/program"
)

// Instruction decodes the call into a program instruction. Argument errors
// are reported as program.ErrInvalidInput.
func (s *Signed) Instruction() (program.Instruction, error) {
	ins := program.Instruction{Caller: s.Sender, Method: s.Method, TxHash: s.Hash}

	if s.Program != program.ProgramID {
		return ins, fmt.Errorf("%w: unknown program %s", program.ErrInvalidInput, s.Program)
	}

	var err error

	// Only update and delete take an account: the record they act on.
	maxAccounts := 0

	switch s.Method {
	case program.MethodInitializeTokenMint:
		if len(s.Args) != 0 {
			err = fmt.Errorf("%d unexpected argument bytes", len(s.Args))
		}
	case program.MethodAddStudentIntro:
		ins.Name, ins.Message, err = DecodeIntroArgs(s.Args)
	case program.MethodUpdateStudentIntro:
		ins.Name, ins.Message, err = DecodeIntroArgs(s.Args)
		maxAccounts = 1
	case program.MethodDeleteStudentIntro:
		ins.Name, err = DecodeNameArgs(s.Args)
		maxAccounts = 1
	default:
		err = fmt.Errorf("unknown method %q", s.Method)
	}

	if err == nil && len(s.Accounts) > maxAccounts {
		err = fmt.Errorf("%d accounts given, at most %d accepted", len(s.Accounts), maxAccounts)
	}

	if err != nil {
		return ins, fmt.Errorf("%w: %s: %v", program.ErrInvalidInput, s.Method, err)
	}

	if len(s.Accounts) > 0 {
		ins.Target = s.Accounts[0]
	}

	return ins, nil
}

// InitializeTokenMint returns the initializeTokenMint call.
func InitializeTokenMint(nonce uint64) Call {
	return Call{Program: program.ProgramID, Method: program.MethodInitializeTokenMint, Nonce: nonce}
}

// AddStudentIntro returns the addStudentIntro call.
func AddStudentIntro(name, message string, nonce uint64) Call {
	return Call{
		Program: program.ProgramID,
		Method:  program.MethodAddStudentIntro,
		Args:    EncodeIntroArgs(name, message),
		Nonce:   nonce,
	}
}

// UpdateStudentIntro returns the updateStudentIntro call. A non-zero target
// names the record explicitly.
func UpdateStudentIntro(name, message string, target address.Address, nonce uint64) Call {
	return Call{
		Program:  program.ProgramID,
		Method:   program.MethodUpdateStudentIntro,
		Args:     EncodeIntroArgs(name, message),
		Accounts: targetAccounts(target),
		Nonce:    nonce,
	}
}

// DeleteStudentIntro returns the deleteStudentIntro call. A non-zero target
// names the record explicitly.
func DeleteStudentIntro(name string, target address.Address, nonce uint64) Call {
	return Call{
		Program:  program.ProgramID,
		Method:   program.MethodDeleteStudentIntro,
		Args:     EncodeNameArgs(name),
		Accounts: targetAccounts(target),
		Nonce:    nonce,
	}
}

// targetAccounts returns the account list for an optional target.
func targetAccounts(target address.Address) []address.Address {
	if target.IsZero() {
		return nil
	}

	return []address.Address{target}
}
