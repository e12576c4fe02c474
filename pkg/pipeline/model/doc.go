// Package model provides the data structures shared by the pipeline package and its options.
// It defines the descriptions of runs, stages and units handed to observers,
// and the interface every pipeline option implements.
package model
