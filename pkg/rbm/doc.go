/*
Package rbm provides inference-time sampling from trained character-level
restricted Boltzmann machines over fixed-length sequences.

A Model pairs a weight matrix and bias vectors with a Codec that maps
strings to flattened one-hot rows. The Sampler runs an alternating
Gibbs chain over a batch of such rows, optionally annealing the sampling
temperature, optionally biasing the chain toward a target length range,
and decoding the batch into strings at caller-chosen checkpoints.

Training examples used to seed chains can come from a plain text file
(FileSource) or a SQLite-backed corpus (Store).
*/
package rbm
