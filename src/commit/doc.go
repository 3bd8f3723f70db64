/*
Package commit implements atomic-commit protocols over the round-synchronous
core: classic two-phase commit and its three-phase refinement.

A run has one coordinator and any number of participants. The coordinator
broadcasts a PREPARE for the transaction, every participant votes, and the
coordinator turns the votes into one global verdict: COMMIT only if every
vote said commit, ABORT as soon as any vote says abort or the voting window
closes with votes missing. The coordinator records its verdict the moment it
broadcasts it.

The two-phase variant has a famous blocking window. Before voting, a
participant is free to abort on its own, and it does so if no PREPARE shows
up in time. After voting commit it is locked in: only the coordinator can
release it, and a coordinator that dies while holding the votes leaves every
locked participant undecided for good. Such a run never converges, which is
the defect the three-phase variant exists to remove.

The three-phase variant inserts a PRE_COMMIT round between the votes and the
verdict. Because the coordinator announces the tentative commit before
finalizing it, a participant abandoned mid-protocol can terminate on its
own: one that saw the PRE_COMMIT knows the verdict could only have been
commit, and one that did not is still free to abort.
*/
package commit
