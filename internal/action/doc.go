// Package action implements the programmable effects bound to a button.
//
// There are four variants, all satisfying Action:
//
//   - Text types its parameter one character at a time
//   - MultiKey presses a ";" separated chord and releases it in reverse
//   - Delay pauses the sequence for a whole number of seconds
//   - Application starts a detached process
//
// Actions are built by a Factory from the type string and parameter stored
// in the action table. The Factory carries the collaborators the variants
// need: a key resolver, an Injector for key events and a Launcher for
// processes.
//
//	f := &action.Factory{Keys: keys.New(), Injector: inj, Launcher: launcher}
//	a, err := f.New(action.TypeMultiKey, "CTRL;ALT;t", 0, 0)
//	if err != nil {
//	    return err
//	}
//	err = a.Execute(ctx)
package action
